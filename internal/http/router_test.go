package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/cart"
	"github.com/Micevski239/dysnomia-website-sub001/internal/catalog"
	"github.com/Micevski239/dysnomia-website-sub001/internal/checkout"
	"github.com/Micevski239/dysnomia-website-sub001/internal/confirmation"
	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"github.com/Micevski239/dysnomia-website-sub001/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCatalog struct {
	products map[string]*catalog.Product
	err      error
}

func (c *mockCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c *mockCatalog) ListActive(_ context.Context) ([]*catalog.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []*catalog.Product
	for _, p := range c.products {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockOrders struct {
	m      sync.RWMutex
	orders map[string]*domain.Order
	err    error
}

func (o *mockOrders) CreateOrder(_ context.Context, req domain.OrderRequest) (*domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	order := &domain.Order{
		ID:              "9a4e2f6c-1b3d-4c5e-8f7a-0b1c2d3e4f50",
		OrderNumber:     "AP-20260314-C0FFEE",
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Items:           req.Items,
		Subtotal:        req.Subtotal,
		ShippingCost:    req.ShippingCost,
		TotalAmount:     req.TotalAmount,
		CreatedAt:       time.Now(),
	}
	o.orders[order.ID] = order
	return order, nil
}

func (o *mockOrders) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	o.m.RLock()
	defer o.m.RUnlock()
	order, ok := o.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

type testServer struct {
	handler http.Handler
	orders  *mockOrders
	catalog *mockCatalog
	orch    *checkout.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	products := &mockCatalog{products: map[string]*catalog.Product{
		"prd-1": {ID: "prd-1", Title: "Ohrid at Dawn", Slug: "ohrid-at-dawn", ImageURL: "/img/1.jpg", Status: catalog.StatusActive},
		"prd-2": {ID: "prd-2", Title: "Vardar Lights", Slug: "vardar-lights", ImageURL: "/img/2.jpg", Status: catalog.StatusActive},
		"prd-3": {ID: "prd-3", Title: "Matka Blue", Slug: "matka-blue", Status: "archived"},
	}}
	orders := &mockOrders{orders: make(map[string]*domain.Order)}
	prices := pricing.Default()

	carts := cart.NewManager(storage.NewMemoryStorage(), "", time.Second, logger, m)
	orch := checkout.NewOrchestrator(orders, nil, checkout.Config{
		Shipping:      checkout.ShippingPolicy{FlatFee: 350, FreeThreshold: 20000},
		SubmitTimeout: time.Second,
	}, logger, m)

	handler := NewRouter(Handlers{
		Cart:     NewCartHandler(carts, prices, products, time.Second, logger),
		Checkout: NewCheckoutHandler(carts, checkout.NewValidator(), orch, logger),
		Orders:   NewOrdersHandler(confirmation.NewReader(orders, time.Second, logger), time.Second),
		Catalog:  NewCatalogHandler(products, prices, time.Second, logger),
	}, RouterConfig{
		AllowedOrigins: []string{"*"},
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
	})

	return &testServer{handler: handler, orders: orders, catalog: products, orch: orch}
}

func (s *testServer) do(t *testing.T, method, path, session string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

const session = "b7c1d2e3-f4a5-4b6c-9d8e-0f1a2b3c4d5e"

func validCheckoutForm() checkout.Form {
	return checkout.Form{
		Email:      "ana@example.com",
		Phone:      "+389 70 123 456",
		FullName:   "Ana Petrova",
		Address:    "Partizanska 12",
		City:       "Skopje",
		PostalCode: "1000",
		Country:    "MK",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestGetCart_IssuesSession(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	issued := rec.Header().Get(SessionHeader)
	assert.NotEmpty(t, issued)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, issued, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	snap := decode[cart.Snapshot](t, rec)
	assert.Empty(t, snap.Items)
}

func TestGetCart_KeepsExistingSession(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/cart", session, nil)
	assert.Equal(t, session, rec.Header().Get(SessionHeader))
}

func TestAddItem(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", session, AddItemRequestDTO{
		ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	snap := decode[cart.Snapshot](t, rec)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Ohrid at Dawn", snap.Items[0].ProductTitle)
	assert.Equal(t, "ohrid-at-dawn", snap.Items[0].ProductSlug)
	assert.Equal(t, int64(2640), snap.Items[0].UnitPrice)
	assert.Equal(t, 2, snap.ItemCount)

	// the cart is bound to the session
	other := decode[cart.Snapshot](t, s.do(t, http.MethodGet, "/api/v1/cart", "another-session-id", nil))
	assert.Empty(t, other.Items)
	same := decode[cart.Snapshot](t, s.do(t, http.MethodGet, "/api/v1/cart", session, nil))
	assert.Equal(t, 2, same.ItemCount)
}

func TestAddItem_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"bad json", "nope", http.StatusBadRequest, "invalid_request"},
		{"missing product", AddItemRequestDTO{PrintType: "canvas", SizeID: "50x70"}, http.StatusBadRequest, "invalid_product_id"},
		{"unknown product", AddItemRequestDTO{ProductID: "zzz", PrintType: "canvas", SizeID: "50x70"}, http.StatusNotFound, "product_not_found"},
		{"archived product", AddItemRequestDTO{ProductID: "prd-3", PrintType: "canvas", SizeID: "50x70"}, http.StatusConflict, "product_unavailable"},
		{"bad print type", AddItemRequestDTO{ProductID: "prd-1", PrintType: "poster", SizeID: "50x70"}, http.StatusBadRequest, "unknown_variant"},
		{"bad size", AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "1x1"}, http.StatusBadRequest, "unknown_variant"},
		{"too many", AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: 100}, http.StatusBadRequest, "invalid_quantity"},
		{"negative", AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: -1}, http.StatusBadRequest, "invalid_quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/api/v1/cart/items", session, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestAddItem_CatalogDown(t *testing.T) {
	s := newTestServer(t)
	s.catalog.err = errors.New("disk I/O error")

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", session, AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAddItem_RowQuantityCapped(t *testing.T) {
	s := newTestServer(t)
	add := AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: 60}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session, add).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", session, add)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", decode[ErrorResponse](t, rec).Code)

	snap := decode[cart.Snapshot](t, s.do(t, http.MethodGet, "/api/v1/cart", session, nil))
	assert.Equal(t, 60, snap.ItemCount)
}

func TestIncrementDecrementRemove(t *testing.T) {
	s := newTestServer(t)
	add := AddItemRequestDTO{ProductID: "prd-1", PrintType: "framed", SizeID: "70x100", Quantity: 1}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session, add).Code)

	item := ItemRequestDTO{ProductID: "prd-1", PrintType: "framed", SizeID: "70x100"}

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items/increment", session, item)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[cart.Snapshot](t, rec).ItemCount)

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items/decrement", session, item)
	assert.Equal(t, 1, decode[cart.Snapshot](t, rec).ItemCount)

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items/decrement", session, item)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cart.Snapshot](t, rec).Items)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart/items", session, item)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item_not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart/items", session, ItemRequestDTO{ProductID: "prd-1", PrintType: "poster", SizeID: "70x100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveAndClear(t *testing.T) {
	s := newTestServer(t)
	for _, size := range []string{"30x40", "50x70"} {
		add := AddItemRequestDTO{ProductID: "prd-2", PrintType: "roll", SizeID: size}
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session, add).Code)
	}

	rec := s.do(t, http.MethodDelete, "/api/v1/cart/items", session, ItemRequestDTO{ProductID: "prd-2", PrintType: "roll", SizeID: "30x40"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[cart.Snapshot](t, rec)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "50x70", snap.Items[0].SizeID)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cart.Snapshot](t, rec).Items)
}

func TestCheckout_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	form := validCheckoutForm()
	form.Email = ""
	form.Country = "ZZ"

	rec := s.do(t, http.MethodPost, "/api/v1/checkout", session, form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Len(t, resp.Fields, 2)
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "country")
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout", session, validCheckoutForm())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)
	assert.Empty(t, s.orders.orders)
}

func TestCheckout_SuccessThenConfirmation(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session,
		AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: 2}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session,
		AddItemRequestDTO{ProductID: "prd-2", PrintType: "framed", SizeID: "70x100", Quantity: 1}).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout", session, validCheckoutForm())
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "AP-20260314-C0FFEE", resp.OrderNumber)
	assert.Equal(t, int64(11780), resp.TotalAmount)

	snap := decode[cart.Snapshot](t, s.do(t, http.MethodGet, "/api/v1/cart", session, nil))
	assert.Empty(t, snap.Items)

	status := decode[CheckoutStatusDTO](t, s.do(t, http.MethodGet, "/api/v1/checkout/status", session, nil))
	assert.Equal(t, "SUCCEEDED", status.Status)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+resp.OrderID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[domain.Order](t, rec)
	assert.Equal(t, resp.OrderID, order.ID)
	assert.Len(t, order.Items, 2)
}

func TestCheckout_ServiceFailureKeepsCart(t *testing.T) {
	s := newTestServer(t)
	s.orders.err = errors.New("order service unavailable")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart/items", session,
		AddItemRequestDTO{ProductID: "prd-1", PrintType: "canvas", SizeID: "50x70", Quantity: 2}).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout", session, validCheckoutForm())
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "order_failed", resp.Code)
	assert.NotContains(t, resp.Error, "order service unavailable")
	assert.NotEmpty(t, resp.Error)

	snap := decode[cart.Snapshot](t, s.do(t, http.MethodGet, "/api/v1/cart", session, nil))
	assert.Equal(t, 2, snap.ItemCount)
}

func TestGetOrder_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/orders/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestPrices(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[PricesResponseDTO](t, rec)
	assert.Len(t, resp.Sizes, 5)
	assert.Len(t, resp.Prices, 15)
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Product](t, rec), 2)
}

func TestCountries(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/checkout/countries", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]checkout.Country](t, rec), len(checkout.Countries))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_http_requests_total{route="/health",status="200"} 1`)
}
