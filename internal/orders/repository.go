// Package orders is the order-persistence service: it prices submitted
// orders from its own table, stores them in Postgres and reads them back.
package orders

import (
	"context"
	"errors"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order number already exists")
	ErrNoItems           = errors.New("order has no items")
	ErrInvalidItem       = errors.New("order item is not purchasable")
	ErrInvalidSubmission = errors.New("order is missing customer or shipping details")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}
