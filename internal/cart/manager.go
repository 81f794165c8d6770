package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"github.com/Micevski239/dysnomia-website-sub001/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultKeyPrefix = "artprint-cart"

	defaultLoadTimeout = 2 * time.Second
)

// Manager hands out one Store per cart session, loading it from storage the
// first time the session is seen. Idle stores are dropped by Sweep and
// reloaded from storage on the next request.
type Manager struct {
	storage      storage.Storage
	prefix       string
	writeTimeout time.Duration
	loadTimeout  time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu     sync.RWMutex
	stores map[string]*entry
	sfg    singleflight.Group
}

type entry struct {
	store    *Store
	lastUsed atomic.Int64
}

func (e *entry) touch(t time.Time) {
	e.lastUsed.Store(t.UnixNano())
}

func NewManager(st storage.Storage, prefix string, writeTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Manager{
		storage:      st,
		prefix:       prefix,
		writeTimeout: writeTimeout,
		loadTimeout:  defaultLoadTimeout,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
		stores:       make(map[string]*entry),
	}
}

// Key is the storage key a session's cart lives under.
func (m *Manager) Key(session string) string {
	return m.prefix + ":" + session
}

// Store returns the session's cart. The first load is detached from ctx so
// a request that went away cannot leave an empty cart cached over a saved
// one. When the read itself fails the empty fallback is not cached, and the
// next request reads storage again.
func (m *Manager) Store(ctx context.Context, session string) *Store {
	m.mu.RLock()
	e, ok := m.stores[session]
	m.mu.RUnlock()
	if ok {
		e.touch(m.now())
		return e.store
	}

	// concurrent first requests for a session share one load
	v, _, _ := m.sfg.Do(session, func() (interface{}, error) {
		m.mu.RLock()
		e, ok := m.stores[session]
		m.mu.RUnlock()
		if ok {
			e.touch(m.now())
			return e.store, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
		defer cancel()

		s, err := loadStore(loadCtx, m.storage, m.Key(session), m.logger.With(zap.String("session", session)),
			WithWriteTimeout(m.writeTimeout), WithMetrics(m.metrics))
		if err != nil {
			return s, nil
		}

		e = &entry{store: s}
		e.touch(m.now())
		m.mu.Lock()
		m.stores[session] = e
		m.mu.Unlock()
		return s, nil
	})

	return v.(*Store)
}

// Evict drops the in-memory store for session. The next Store call reloads
// it from storage.
func (m *Manager) Evict(session string) {
	m.mu.Lock()
	delete(m.stores, session)
	m.mu.Unlock()
}

// Sweep evicts every store not used for longer than idle and returns how
// many were dropped.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for session, e := range m.stores {
		if e.lastUsed.Load() < cutoff {
			delete(m.stores, session)
			n++
		}
	}
	return n
}

// Len reports how many stores are held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}
