package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/cart"
	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"go.uber.org/zap"
)

const EventOrderPlaced = "order_placed"

// OrderService persists an order and returns the authoritative record.
type OrderService interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)
}

// Notifier delivers order events. Its result never decides a checkout.
type Notifier interface {
	Notify(ctx context.Context, order domain.Order, event string) error
}

// Cart is the part of a cart store the orchestrator needs.
type Cart interface {
	Snapshot() cart.Snapshot
	Update(fn func([]domain.LineItem) []domain.LineItem) cart.Snapshot
}

type Config struct {
	Shipping      ShippingPolicy
	SubmitTimeout time.Duration
	NotifyTimeout time.Duration
}

type Orchestrator struct {
	orders   OrderService
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	attempts map[string]attempt
	now      func() time.Time
	wg       sync.WaitGroup
}

type attempt struct {
	status  Status
	updated time.Time
}

func NewOrchestrator(orders OrderService, notifier Notifier, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 15 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &Orchestrator{
		orders:   orders,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		attempts: make(map[string]attempt),
		now:      time.Now,
	}
}

// Status returns the state of the latest attempt for cartKey.
func (o *Orchestrator) Status(cartKey string) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.attempts[cartKey]; ok {
		return a.status
	}
	return StatusIdle
}

// Sweep forgets finished attempts last updated more than maxAge ago and
// returns how many were dropped. A forgotten cart reports StatusIdle.
func (o *Orchestrator) Sweep(maxAge time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := o.now().Add(-maxAge)
	n := 0
	for key, a := range o.attempts {
		if a.status.IsTerminal() && a.updated.Before(cutoff) {
			delete(o.attempts, key)
			n++
		}
	}
	return n
}

// Submit places an order for the current contents of c. Once the order
// service is called the attempt runs to completion even if ctx is canceled.
// On success the ordered rows are removed from the cart and the order
// returned; on failure the cart is left as it was and a *SubmissionError is
// returned.
func (o *Orchestrator) Submit(ctx context.Context, cartKey string, c Cart, sub domain.CheckoutSubmission) (*domain.Order, error) {
	snap, err := o.begin(cartKey, c)
	if err != nil {
		return nil, err
	}

	req := o.BuildRequest(sub, snap)

	order, err := o.createOrder(ctx, req)
	if err != nil {
		o.finish(cartKey, StatusFailed)
		o.metrics.Checkout("failed")
		o.logger.Warn("order submission failed", zap.String("cart", cartKey), zap.Error(err))
		return nil, newSubmissionError(err)
	}

	o.notify(*order)
	// rows added while the order was in flight stay in the cart
	c.Update(func(items []domain.LineItem) []domain.LineItem {
		return cart.Subtract(items, snap.Items)
	})
	o.finish(cartKey, StatusSucceeded)
	o.metrics.Checkout("succeeded")
	o.logger.Info("order placed",
		zap.String("cart", cartKey),
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))

	return order, nil
}

// createOrder calls the order service under its own timeout. A panic in
// the service is returned as an error so the attempt still finishes.
func (o *Orchestrator) createOrder(ctx context.Context, req domain.OrderRequest) (order *domain.Order, err error) {
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.SubmitTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			order, err = nil, fmt.Errorf("order service panicked: %v", r)
		}
	}()

	order, err = o.orders.CreateOrder(submitCtx, req)
	if err == nil && order == nil {
		err = errors.New("order service returned no order")
	}
	return order, err
}

func (o *Orchestrator) begin(cartKey string, c Cart) (cart.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := StatusIdle
	if a, ok := o.attempts[cartKey]; ok {
		current = a.status
	}
	if current == StatusSubmitting {
		o.metrics.Checkout("in_progress")
		return cart.Snapshot{}, ErrSubmitInProgress
	}

	snap := c.Snapshot()
	if snap.Empty() {
		o.metrics.Checkout("empty_cart")
		return cart.Snapshot{}, ErrEmptyCart
	}

	if !current.CanTransitionTo(StatusSubmitting) {
		return cart.Snapshot{}, fmt.Errorf("%w: %s -> %s", IllegalTransitionError, current, StatusSubmitting)
	}
	o.attempts[cartKey] = attempt{status: StatusSubmitting, updated: o.now()}
	return snap, nil
}

func (o *Orchestrator) finish(cartKey string, next Status) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := o.attempts[cartKey].status
	if !current.CanTransitionTo(next) {
		o.logger.Error("unexpected checkout transition",
			zap.String("cart", cartKey),
			zap.Stringer("from", current),
			zap.Stringer("to", next))
	}
	o.attempts[cartKey] = attempt{status: next, updated: o.now()}
}

// BuildRequest maps a submission and a cart snapshot to the order payload.
// Prices and totals are the ones the shopper saw; the order service
// recomputes its own.
func (o *Orchestrator) BuildRequest(sub domain.CheckoutSubmission, snap cart.Snapshot) domain.OrderRequest {
	items := make([]domain.OrderItem, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, domain.OrderItem{
			ProductID:    it.ProductID,
			ProductTitle: it.ProductTitle,
			PrintType:    it.PrintType,
			SizeID:       it.SizeID,
			SizeLabel:    it.SizeLabel,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
		})
	}

	subtotal := snap.TotalPrice
	shipping := o.cfg.Shipping.Cost(subtotal)
	return domain.OrderRequest{
		Customer: domain.Customer{
			Email:    sub.Email,
			Phone:    sub.Phone,
			FullName: sub.FullName,
		},
		ShippingAddress: domain.ShippingAddress{
			Address:    sub.Address,
			City:       sub.City,
			PostalCode: sub.PostalCode,
			Country:    sub.Country,
		},
		Items:        items,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		TotalAmount:  subtotal + shipping,
		Notes:        sub.Notes,
	}
}

// notify runs detached from the checkout: Submit does not wait for it and
// its outcome is only logged.
func (o *Orchestrator) notify(order domain.Order) {
	if o.notifier == nil {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				o.metrics.Notification(false)
				o.logger.Error("notification panicked", zap.String("order_id", order.ID), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.NotifyTimeout)
		defer cancel()

		if err := o.notifier.Notify(ctx, order, EventOrderPlaced); err != nil {
			o.metrics.Notification(false)
			o.logger.Warn("order notification failed", zap.String("order_id", order.ID), zap.Error(err))
			return
		}
		o.metrics.Notification(true)
	}()
}

// Wait blocks until every dispatched notification has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
