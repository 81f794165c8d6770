package http

import (
	"errors"
	"net/http"

	"github.com/Micevski239/dysnomia-website-sub001/internal/cart"
	"github.com/Micevski239/dysnomia-website-sub001/internal/checkout"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	carts        *cart.Manager
	validator    *checkout.Validator
	orchestrator *checkout.Orchestrator
	logger       *zap.Logger
}

func NewCheckoutHandler(carts *cart.Manager, validator *checkout.Validator, orchestrator *checkout.Orchestrator, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:        carts,
		validator:    validator,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type CheckoutResponseDTO struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	TotalAmount int64  `json:"totalAmount"`
}

type CheckoutStatusDTO struct {
	Status string `json:"status"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeJSON(w, r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res := h.validator.Validate(form)
	if !res.Success {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "checkout form has errors",
			Code:   "validation_failed",
			Fields: res.Errors,
		})
		return
	}

	session := sessionFromContext(r.Context())
	store := h.carts.Store(r.Context(), session)

	order, err := h.orchestrator.Submit(r.Context(), session, store, *res.Data)
	var subErr *checkout.SubmissionError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "your cart is empty")
		return
	case errors.Is(err, checkout.ErrSubmitInProgress):
		respondError(w, http.StatusConflict, "submit_in_progress", "this order is already being placed")
		return
	case errors.As(err, &subErr):
		respondError(w, http.StatusBadGateway, "order_failed", subErr.Message)
		return
	case err != nil:
		h.logger.Error("checkout failed", zap.String("session", session), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	})
}

// GET /api/v1/checkout/status
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.orchestrator.Status(sessionFromContext(r.Context()))
	respondJSON(w, http.StatusOK, CheckoutStatusDTO{Status: status.String()})
}

// GET /api/v1/checkout/countries
func (h *CheckoutHandler) Countries(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, checkout.Countries)
}
