package checkout

import (
	"context"
	"errors"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrSubmitInProgress    = errors.New("checkout already in progress for this cart")
	IllegalTransitionError = errors.New("illegal transition of checkout status")

	// ErrOrderRejected is wrapped by order services when the order itself
	// is unacceptable, as opposed to the service being unavailable.
	ErrOrderRejected = errors.New("order rejected")
)

const (
	msgOrderRejected = "Some items in your cart can no longer be ordered. Please review your cart and try again."
	msgOrderTimeout  = "Placing your order is taking too long. Please try again in a moment."
	msgOrderFailed   = "We could not place your order right now. Please try again in a moment."
)

// SubmissionError is returned when the order service rejects or cannot be
// reached. Message is safe to show to the shopper; Err keeps the cause for
// logs. The cart is untouched.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return "order submission failed: " + e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func newSubmissionError(err error) *SubmissionError {
	msg := msgOrderFailed
	switch {
	case errors.Is(err, ErrOrderRejected):
		msg = msgOrderRejected
	case errors.Is(err, context.DeadlineExceeded):
		msg = msgOrderTimeout
	}
	return &SubmissionError{Message: msg, Err: err}
}
