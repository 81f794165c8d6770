// Package storage provides durable key/value backends for persisted carts.
package storage

import (
	"context"
	"errors"
)

// Storage is the durable store a cart is written through to. Values are
// opaque bytes; callers own the encoding.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
