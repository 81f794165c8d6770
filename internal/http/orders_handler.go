package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/confirmation"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	reader  *confirmation.Reader
	timeout time.Duration
}

func NewOrdersHandler(reader *confirmation.Reader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		reader:  reader,
		timeout: timeout,
	}
}

// GET /api/v1/orders/{order_id}
//
// A failed lookup is reported as not found, same as a missing order.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	res := h.reader.Fetch(ctx, orderID)
	if !res.Found {
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, res.Order)
}
