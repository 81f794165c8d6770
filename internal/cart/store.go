package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"github.com/Micevski239/dysnomia-website-sub001/internal/storage"
	"go.uber.org/zap"
)

const defaultWriteTimeout = time.Second

// Snapshot is a read-only view of a cart at one point in time.
type Snapshot struct {
	Items      []domain.LineItem `json:"items"`
	ItemCount  int               `json:"itemCount"`
	TotalPrice int64             `json:"totalPrice"`
}

func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

func newSnapshot(items []domain.LineItem) Snapshot {
	return Snapshot{
		Items:      clone(items),
		ItemCount:  ItemCount(items),
		TotalPrice: TotalPrice(items),
	}
}

// Store is the single source of truth for one session's cart. Every mutation
// replaces the item slice and writes the full cart through to storage.
// The in-memory cart stays authoritative when that write fails.
type Store struct {
	mu           sync.Mutex
	items        []domain.LineItem
	storage      storage.Storage
	key          string
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	subscribers  []func(Snapshot)
}

type StoreOption func(*Store)

func WithWriteTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.writeTimeout = d }
}

func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// LoadStore reads the cart saved under key. A missing, unreadable or
// malformed value yields an empty cart; it is never an error.
func LoadStore(ctx context.Context, st storage.Storage, key string, logger *zap.Logger, opts ...StoreOption) *Store {
	s, _ := loadStore(ctx, st, key, logger, opts...)
	return s
}

// loadStore is LoadStore that also reports a failed storage read. Absent and
// malformed values are not read failures.
func loadStore(ctx context.Context, st storage.Storage, key string, logger *zap.Logger, opts ...StoreOption) (*Store, error) {
	s := &Store{
		storage:      st,
		key:          key,
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	items, err := s.load(ctx)
	s.items = items
	return s, err
}

func (s *Store) load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("cart read failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return nil, err
	}

	items, err := decodeItems(data)
	if err != nil {
		s.logger.Warn("discarding stored cart", zap.String("key", s.key), zap.Error(err))
		return nil, nil
	}
	return items, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSnapshot(s.items)
}

func (s *Store) Add(item domain.LineItem, quantity int) Snapshot {
	return s.mutate(func(items []domain.LineItem) []domain.LineItem {
		return Add(items, item, quantity)
	})
}

func (s *Store) Remove(key domain.Key) Snapshot {
	return s.mutate(func(items []domain.LineItem) []domain.LineItem {
		return Remove(items, key)
	})
}

func (s *Store) SetQuantity(key domain.Key, quantity int) Snapshot {
	return s.mutate(func(items []domain.LineItem) []domain.LineItem {
		return SetQuantity(items, key, quantity)
	})
}

func (s *Store) Clear() Snapshot {
	return s.mutate(func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// Update applies fn to the current items under the store lock and persists
// the result. fn must not retain or modify its argument.
func (s *Store) Update(fn func([]domain.LineItem) []domain.LineItem) Snapshot {
	return s.mutate(fn)
}

// Subscribe registers fn to receive the snapshot after every mutation. fn
// runs after the store lock is released.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) mutate(fn func([]domain.LineItem) []domain.LineItem) Snapshot {
	s.mu.Lock()
	s.items = fn(s.items)
	snap := newSnapshot(s.items)
	s.persist(snap.Items)
	subscribers := make([]func(Snapshot), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snap)
	}
	return snap
}

// persist writes under the store lock so writes reach storage in mutation
// order. No retry: the next mutation writes the whole cart again.
func (s *Store) persist(items []domain.LineItem) {
	data, err := encodeItems(items)
	if err != nil {
		s.logger.Error("cart encode failed", zap.String("key", s.key), zap.Error(err))
		s.metrics.CartWrite(false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Error("cart write failed", zap.String("key", s.key), zap.Error(err))
		s.metrics.CartWrite(false)
		return
	}
	s.metrics.CartWrite(true)
}
