package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/cart"
	"github.com/Micevski239/dysnomia-website-sub001/internal/catalog"
	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts   *cart.Manager
	prices  pricing.Pricer
	catalog catalog.Reader
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts *cart.Manager, prices pricing.Pricer, products catalog.Reader, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		prices:  prices,
		catalog: products,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	PrintType string `json:"printType"`
	SizeID    string `json:"sizeId"`
	Quantity  int    `json:"quantity"`
}

// ItemRequestDTO identifies an existing cart line.
type ItemRequestDTO struct {
	ProductID string `json:"productId"`
	PrintType string `json:"printType"`
	SizeID    string `json:"sizeId"`
}

func (d ItemRequestDTO) item() (domain.LineItem, error) {
	printType, err := domain.ParsePrintType(d.PrintType)
	if err != nil {
		return domain.LineItem{}, err
	}
	if d.ProductID == "" || d.SizeID == "" {
		return domain.LineItem{}, errors.New("productId and sizeId are required")
	}
	return domain.LineItem{ProductID: d.ProductID, PrintType: printType, SizeID: d.SizeID}, nil
}

func (h *CartHandler) facade(ctx context.Context) *cart.Facade {
	return cart.NewFacade(h.carts.Store(ctx, sessionFromContext(ctx)), h.prices)
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.facade(r.Context()).Snapshot())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity < 0 || req.Quantity > cart.MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	printType, err := domain.ParsePrintType(req.PrintType)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_variant", err.Error())
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.Error("catalog lookup failed", zap.String("product_id", req.ProductID), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog is unavailable")
		return
	}
	if !product.Active() {
		respondError(w, http.StatusConflict, "product_unavailable", "product is not for sale")
		return
	}

	snap, err := h.facade(r.Context()).AddToCart(cart.AddInput{
		ProductID:    product.ID,
		ProductTitle: product.Title,
		ProductSlug:  product.Slug,
		ImageURL:     product.ImageURL,
		PrintType:    printType,
		SizeID:       req.SizeID,
		Quantity:     req.Quantity,
	})
	switch {
	case errors.Is(err, cart.ErrUnknownVariant):
		respondError(w, http.StatusBadRequest, "unknown_variant", err.Error())
		return
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, snap)
}

// POST /api/v1/cart/items/increment
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.withItem(w, r, func(f *cart.Facade, item domain.LineItem) cart.Snapshot {
		return f.IncrementQuantity(item)
	})
}

// POST /api/v1/cart/items/decrement
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.withItem(w, r, func(f *cart.Facade, item domain.LineItem) cart.Snapshot {
		return f.DecrementQuantity(item)
	})
}

// DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.withItem(w, r, func(f *cart.Facade, item domain.LineItem) cart.Snapshot {
		return f.RemoveFromCart(item)
	})
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.facade(r.Context()).Clear())
}

func (h *CartHandler) withItem(w http.ResponseWriter, r *http.Request, fn func(*cart.Facade, domain.LineItem) cart.Snapshot) {
	var req ItemRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	item, err := req.item()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}

	f := h.facade(r.Context())
	if !f.IsInCart(item.ProductID, item.PrintType, item.SizeID) {
		respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, fn(f, item))
}
