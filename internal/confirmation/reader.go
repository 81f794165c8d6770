// Package confirmation reads placed orders back for the confirmation page.
package confirmation

import (
	"context"
	"sync"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type OrderLookup interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

// Result is what the confirmation page renders. A lookup error and a
// missing order both come back as Found == false.
type Result struct {
	Found bool
	Order *domain.Order
}

const defaultLookupTimeout = 10 * time.Second

type Reader struct {
	lookup  OrderLookup
	timeout time.Duration
	logger  *zap.Logger
	sfg     singleflight.Group
}

func NewReader(lookup OrderLookup, timeout time.Duration, logger *zap.Logger) *Reader {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Reader{lookup: lookup, timeout: timeout, logger: logger}
}

// Fetch makes a single attempt to load the order. Concurrent fetches of the
// same id share one lookup, which is not tied to any single caller's ctx.
func (r *Reader) Fetch(ctx context.Context, orderID string) Result {
	if orderID == "" {
		return Result{}
	}

	ch := r.sfg.DoChan(orderID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.lookup.GetOrder(lookupCtx, orderID)
	})

	select {
	case <-ctx.Done():
		return Result{}
	case res := <-ch:
		if res.Err != nil {
			r.logger.Info("order lookup failed", zap.String("order_id", orderID), zap.Error(res.Err))
			return Result{}
		}
		order, _ := res.Val.(*domain.Order)
		if order == nil {
			return Result{}
		}
		return Result{Found: true, Order: order}
	}
}

// Load fetches the order in the background and hands the result to deliver.
// Once cancel has returned, or ctx is done, a result that arrives later is
// dropped. deliver may itself call cancel. cancel is safe to call more than
// once.
func (r *Reader) Load(ctx context.Context, orderID string, deliver func(Result)) (cancel func()) {
	ctx, stop := context.WithCancel(ctx)

	var (
		mu       sync.Mutex
		canceled bool
	)
	cancel = func() {
		mu.Lock()
		canceled = true
		mu.Unlock()
		stop()
	}

	go func() {
		res := r.Fetch(ctx, orderID)

		mu.Lock()
		dropped := canceled || ctx.Err() != nil
		mu.Unlock()
		if dropped {
			return
		}
		deliver(res)
	}()

	return cancel
}
