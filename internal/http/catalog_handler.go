package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/catalog"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	products catalog.Reader
	prices   pricing.Table
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCatalogHandler(products catalog.Reader, prices pricing.Table, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		products: products,
		prices:   prices,
		timeout:  timeout,
		logger:   logger,
	}
}

type PricesResponseDTO struct {
	Sizes  []pricing.Size  `json:"sizes"`
	Prices []pricing.Entry `json:"prices"`
}

// GET /api/v1/prices
func (h *CatalogHandler) Prices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, PricesResponseDTO{
		Sizes:  pricing.Sizes(),
		Prices: h.prices.Matrix(),
	})
}

// GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListActive(ctx)
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog is unavailable")
		return
	}
	if products == nil {
		products = []*catalog.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}
