package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/checkout"
	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const numberAttempts = 3

// Service is the authority on order totals. Prices sent by the storefront
// are ignored: every line is repriced from the service's own table, and a
// mismatch is logged, never rejected.
type Service struct {
	repo     OrderRepository
	prices   pricing.Pricer
	shipping checkout.ShippingPolicy
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo OrderRepository, prices pricing.Pricer, shipping checkout.ShippingPolicy, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		prices:   prices,
		shipping: shipping,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %w", checkout.ErrOrderRejected, err)
	}

	items, err := s.reprice(req.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", checkout.ErrOrderRejected, err)
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	shipping := s.shipping.Cost(subtotal)
	total := subtotal + shipping

	if total != req.TotalAmount || subtotal != req.Subtotal || shipping != req.ShippingCost {
		s.logger.Info("client totals overridden",
			zap.Int64("client_total", req.TotalAmount),
			zap.Int64("total", total),
			zap.Int64("client_shipping", req.ShippingCost),
			zap.Int64("shipping", shipping))
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		TotalAmount:     total,
		Notes:           req.Notes,
		CreatedAt:       now,
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = orderNumber(now)
		err := s.repo.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateOrder) && attempt < numberAttempts {
			continue
		}
		return nil, fmt.Errorf("save order: %w", err)
	}

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetOrderByID(ctx, orderID)
}

func (s *Service) reprice(in []domain.OrderItem) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, 0, len(in))
	for i, it := range in {
		if it.ProductID == "" || it.Quantity < 1 || !it.PrintType.Valid() {
			return nil, fmt.Errorf("%w: item %d", ErrInvalidItem, i)
		}
		label, ok := pricing.SizeLabel(it.SizeID)
		if !ok {
			return nil, fmt.Errorf("%w: item %d has size %q", ErrInvalidItem, i, it.SizeID)
		}
		price := s.prices.Price(it.PrintType, it.SizeID)
		if price <= 0 {
			return nil, fmt.Errorf("%w: item %d is not priced", ErrInvalidItem, i)
		}
		if price != it.UnitPrice {
			s.logger.Info("client unit price overridden",
				zap.String("product_id", it.ProductID),
				zap.Stringer("print_type", it.PrintType),
				zap.String("size_id", it.SizeID),
				zap.Int64("client_price", it.UnitPrice),
				zap.Int64("price", price))
		}

		it.UnitPrice = price
		it.SizeLabel = label
		out = append(out, it)
	}
	return out, nil
}

func validateRequest(req domain.OrderRequest) error {
	if len(req.Items) == 0 {
		return ErrNoItems
	}
	c, a := req.Customer, req.ShippingAddress
	if c.Email == "" || c.FullName == "" || c.Phone == "" ||
		a.Address == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return ErrInvalidSubmission
	}
	return nil
}

// orderNumber is the human-readable reference shown to customers, e.g.
// AP-20260314-7F3A9C.
func orderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "AP-" + t.Format("20060102") + "-" + suffix
}
