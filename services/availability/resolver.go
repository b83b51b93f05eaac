// Package availability resolves room inventory for exact
// (hotel, check-in, check-out) query triples. Rapid queries are
// debounced into one provider call, in-flight work is cancellable, and
// successful results are cached and speculatively prefetched for
// adjacent date ranges.
package availability

import (
	"context"
	"errors"
	"sync"
	"time"

	"tripnest/models"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Outcome is the typed result union delivered for one Check call.
// Exactly one of the three shapes applies: a result, an error, or a
// silent cancellation. Cancellations are not errors.
type Outcome struct {
	Result    *models.AvailabilityResult
	Err       error
	Cancelled bool
}

// Config carries the resolver tuning knobs.
type Config struct {
	// DebounceWindow collapses successive Check calls into one provider
	// call carrying only the most recent query.
	DebounceWindow time.Duration
	// CacheTTL bounds reuse of a cached result for its exact triple.
	CacheTTL time.Duration
	// CallTimeout is the per-call provider timeout budget.
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 500 * time.Millisecond
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 3 * time.Second
	}
	return c
}

// Resolver debounces, deduplicates and caches availability lookups.
type Resolver struct {
	provider Provider
	cache    Cache
	cfg      Config
	logger   *zap.Logger

	prefetches sync.WaitGroup

	mu         sync.Mutex
	pending    *pendingCheck
	loading    bool
	lastErr    string
	lastResult *models.AvailabilityResult
	closed     bool
}

type pendingCheck struct {
	query     models.AvailabilityQuery
	timer     *time.Timer
	cancel    context.CancelFunc
	out       chan Outcome
	delivered bool
}

func NewResolver(provider Provider, cache Cache, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{
		provider: provider,
		cache:    cache,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Check schedules a debounced availability lookup and returns a channel
// that delivers exactly one Outcome. A newer Check, Clear or Close
// supersedes the pending one, whose waiter receives a cancellation.
// Cache hits for the exact triple resolve immediately with no provider
// call. The loading flag flips on synchronously regardless of debounce.
func (r *Resolver) Check(ctx context.Context, query models.AvailabilityQuery) <-chan Outcome {
	out := make(chan Outcome, 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		out <- Outcome{Cancelled: true}
		return out
	}

	r.loading = true

	if res, ok := r.cache.Get(ctx, query.CacheKey()); ok {
		r.cancelPendingLocked()
		r.loading = false
		r.lastErr = ""
		r.lastResult = res
		out <- Outcome{Result: res}
		return out
	}

	r.cancelPendingLocked()
	p := &pendingCheck{query: query, out: out}
	p.timer = time.AfterFunc(r.cfg.DebounceWindow, func() { r.fire(p) })
	r.pending = p
	return out
}

// fire runs after the debounce window elapses for a still-current check.
func (r *Resolver) fire(p *pendingCheck) {
	r.mu.Lock()
	if r.pending != p || p.delivered {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CallTimeout)
	p.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	res, err := r.provider.CheckAvailability(ctx, p.query)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.delivered {
		// Superseded while in flight: the response must not reach the
		// result or error state, no matter when it lands.
		return
	}
	r.pending = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.deliverLocked(p, Outcome{Cancelled: true})
			return
		}
		r.loading = false
		r.lastResult = nil
		r.lastErr = err.Error()
		r.deliverLocked(p, Outcome{Err: err})
		return
	}

	r.loading = false
	r.lastErr = ""
	r.lastResult = res
	r.cache.Set(context.Background(), p.query.CacheKey(), res, r.cfg.CacheTTL)
	r.deliverLocked(p, Outcome{Result: res})

	r.spawnPrefetches(p.query)
}

func (r *Resolver) deliverLocked(p *pendingCheck, o Outcome) {
	if p.delivered {
		return
	}
	p.delivered = true
	p.out <- o
}

func (r *Resolver) cancelPendingLocked() {
	p := r.pending
	if p == nil {
		return
	}
	r.pending = nil
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
	r.deliverLocked(p, Outcome{Cancelled: true})
}

// spawnPrefetches warms the cache for the same stay shifted by +1 and
// +7 days. Best effort: failures are swallowed and never reach callers.
func (r *Resolver) spawnPrefetches(query models.AvailabilityQuery) {
	for _, days := range []int{1, 7} {
		shifted, ok := shiftQuery(query, days)
		if !ok {
			continue
		}
		r.prefetches.Add(1)
		go func(q models.AvailabilityQuery) {
			defer r.prefetches.Done()
			r.prefetch(q)
		}(shifted)
	}
}

func (r *Resolver) prefetch(query models.AvailabilityQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CallTimeout)
	defer cancel()

	if _, ok := r.cache.Get(ctx, query.CacheKey()); ok {
		return
	}
	res, err := r.provider.CheckAvailability(ctx, query)
	if err != nil {
		r.logger.Debug("availability prefetch failed",
			zap.String("hotelID", query.HotelID),
			zap.String("checkIn", query.CheckIn),
			zap.Error(err))
		return
	}
	r.cache.Set(context.Background(), query.CacheKey(), res, r.cfg.CacheTTL)
}

// Loading reports whether a check is pending or in flight.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// LastError returns the message of the last genuine failure, if any.
func (r *Resolver) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// LastResult returns the last successfully resolved result, if any.
func (r *Resolver) LastResult() *models.AvailabilityResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// Clear cancels any pending or in-flight check and resets result state.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelPendingLocked()
	r.loading = false
	r.lastErr = ""
	r.lastResult = nil
}

// Close cancels outstanding work and rejects further checks.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelPendingLocked()
	r.loading = false
	r.closed = true
}

func shiftQuery(q models.AvailabilityQuery, days int) (models.AvailabilityQuery, bool) {
	checkIn, err := time.Parse(dateLayout, q.CheckIn)
	if err != nil {
		return models.AvailabilityQuery{}, false
	}
	checkOut, err := time.Parse(dateLayout, q.CheckOut)
	if err != nil {
		return models.AvailabilityQuery{}, false
	}
	return models.AvailabilityQuery{
		HotelID:  q.HotelID,
		CheckIn:  checkIn.AddDate(0, 0, days).Format(dateLayout),
		CheckOut: checkOut.AddDate(0, 0, days).Format(dateLayout),
	}, true
}
