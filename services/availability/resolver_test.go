package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tripnest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []models.AvailabilityQuery
	respond func(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityResult, error)
}

func (f *fakeProvider) CheckAvailability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(ctx, q)
	}
	return okResult(q), nil
}

func (f *fakeProvider) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) callsFor(q models.AvailabilityQuery) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == q {
			n++
		}
	}
	return n
}

func okResult(q models.AvailabilityQuery) *models.AvailabilityResult {
	return &models.AvailabilityResult{
		Query:     q,
		Available: true,
		Rooms: []models.RoomOption{
			{ID: "standard-1", Name: "Standard Room", Capacity: 2, BasePrice: 100},
		},
	}
}

func query(checkIn, checkOut string) models.AvailabilityQuery {
	return models.AvailabilityQuery{HotelID: "42", CheckIn: checkIn, CheckOut: checkOut}
}

func newTestResolver(p Provider, cfg Config) *Resolver {
	return NewResolver(p, NewMemoryCache(), cfg, nil)
}

func TestCheckDebouncesToLastQuery(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{DebounceWindow: 30 * time.Millisecond})
	defer r.Close()

	q1 := query("2024-06-01", "2024-06-02")
	q2 := query("2024-06-01", "2024-06-03")
	q3 := query("2024-06-01", "2024-06-04")

	out1 := r.Check(context.Background(), q1)
	out2 := r.Check(context.Background(), q2)
	out3 := r.Check(context.Background(), q3)

	assert.True(t, (<-out1).Cancelled)
	assert.True(t, (<-out2).Cancelled)

	final := <-out3
	require.NoError(t, final.Err)
	require.NotNil(t, final.Result)
	assert.Equal(t, q3, final.Result.Query)

	r.prefetches.Wait()
	assert.Equal(t, 1, provider.callsFor(q1)+provider.callsFor(q2)+provider.callsFor(q3),
		"exactly one provider call for the debounced burst")
	assert.Equal(t, 1, provider.callsFor(q3), "the last query wins")
}

func TestLoadingFlagSetSynchronously(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{DebounceWindow: time.Minute})
	defer r.Close()

	assert.False(t, r.Loading())
	r.Check(context.Background(), query("2024-06-01", "2024-06-02"))
	assert.True(t, r.Loading(), "loading flips on before the debounce window elapses")
}

func TestCancelledCallNeverAppliesResult(t *testing.T) {
	type gate struct {
		release chan struct{}
		result  *models.AvailabilityResult
	}
	gates := map[string]*gate{}
	var mu sync.Mutex

	provider := &fakeProvider{}
	provider.respond = func(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityResult, error) {
		mu.Lock()
		g := gates[q.CheckOut]
		mu.Unlock()
		if g == nil {
			return okResult(q), nil
		}
		select {
		case <-g.release:
			return g.result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	qOld := query("2024-06-01", "2024-06-02")
	qNew := query("2024-06-01", "2024-06-03")
	mu.Lock()
	gates[qOld.CheckOut] = &gate{release: make(chan struct{}), result: okResult(qOld)}
	gates[qNew.CheckOut] = &gate{release: make(chan struct{}), result: okResult(qNew)}
	mu.Unlock()

	r := newTestResolver(provider, Config{DebounceWindow: 5 * time.Millisecond})
	defer r.Close()

	outOld := r.Check(context.Background(), qOld)
	require.Eventually(t, func() bool { return provider.callsFor(qOld) == 1 },
		time.Second, time.Millisecond, "old call reaches the provider")

	// Supersede the in-flight call, then resolve the new call first and
	// the cancelled one after.
	outNew := r.Check(context.Background(), qNew)
	assert.True(t, (<-outOld).Cancelled)

	require.Eventually(t, func() bool { return provider.callsFor(qNew) == 1 },
		time.Second, time.Millisecond)
	close(gates[qNew.CheckOut].release)

	newOutcome := <-outNew
	require.NoError(t, newOutcome.Err)
	assert.Equal(t, qNew, newOutcome.Result.Query)

	// Late resolution of the cancelled call must not overwrite anything.
	close(gates[qOld.CheckOut].release)
	time.Sleep(20 * time.Millisecond)
	require.NotNil(t, r.LastResult())
	assert.Equal(t, qNew, r.LastResult().Query)
	assert.Empty(t, r.LastError())
}

func TestCacheHitSkipsProviderUntilTTLElapses(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{
		DebounceWindow: time.Millisecond,
		CacheTTL:       60 * time.Millisecond,
	})
	defer r.Close()

	q := query("2024-06-01", "2024-06-04")

	first := <-r.Check(context.Background(), q)
	require.NoError(t, first.Err)
	r.prefetches.Wait()
	assert.Equal(t, 1, provider.callsFor(q))

	second := <-r.Check(context.Background(), q)
	require.NoError(t, second.Err)
	assert.Equal(t, q, second.Result.Query)
	assert.Equal(t, 1, provider.callsFor(q), "within TTL the cache serves the result")
	assert.False(t, r.Loading())

	time.Sleep(80 * time.Millisecond)
	third := <-r.Check(context.Background(), q)
	require.NoError(t, third.Err)
	r.prefetches.Wait()
	assert.Equal(t, 2, provider.callsFor(q), "an expired entry triggers a fresh call")
}

func TestPrefetchWarmsAdjacentRanges(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{DebounceWindow: time.Millisecond})
	defer r.Close()

	q := query("2024-06-01", "2024-06-04")
	first := <-r.Check(context.Background(), q)
	require.NoError(t, first.Err)
	r.prefetches.Wait()

	plusOne := query("2024-06-02", "2024-06-05")
	plusSeven := query("2024-06-08", "2024-06-11")
	assert.Equal(t, 1, provider.callsFor(plusOne))
	assert.Equal(t, 1, provider.callsFor(plusSeven))

	// The warmed entry serves the shifted stay without a provider call.
	shifted := <-r.Check(context.Background(), plusOne)
	require.NoError(t, shifted.Err)
	assert.Equal(t, 1, provider.callsFor(plusOne))
}

func TestPrefetchFailuresAreSwallowed(t *testing.T) {
	provider := &fakeProvider{}
	primary := query("2024-06-01", "2024-06-04")
	provider.respond = func(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityResult, error) {
		if q == primary {
			return okResult(q), nil
		}
		return nil, fmt.Errorf("inventory shard offline")
	}

	r := newTestResolver(provider, Config{DebounceWindow: time.Millisecond})
	defer r.Close()

	outcome := <-r.Check(context.Background(), primary)
	require.NoError(t, outcome.Err)
	r.prefetches.Wait()

	assert.Empty(t, r.LastError(), "prefetch failures never surface")
	assert.Equal(t, primary, r.LastResult().Query)
}

func TestProviderFailurePopulatesErrorAndClearsResult(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{DebounceWindow: time.Millisecond})
	defer r.Close()

	q := query("2024-06-01", "2024-06-04")
	first := <-r.Check(context.Background(), q)
	require.NoError(t, first.Err)
	r.prefetches.Wait()

	provider.mu.Lock()
	provider.respond = func(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityResult, error) {
		return nil, errors.New("upstream 503")
	}
	provider.mu.Unlock()

	failed := <-r.Check(context.Background(), query("2024-07-01", "2024-07-04"))
	require.Error(t, failed.Err)
	assert.False(t, failed.Cancelled)
	assert.Contains(t, r.LastError(), "upstream 503")
	assert.Nil(t, r.LastResult(), "a genuine failure clears stale results")
	assert.False(t, r.Loading())
}

func TestClearCancelsPendingWork(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(provider, Config{DebounceWindow: time.Minute})
	defer r.Close()

	out := r.Check(context.Background(), query("2024-06-01", "2024-06-02"))
	r.Clear()

	assert.True(t, (<-out).Cancelled)
	assert.False(t, r.Loading())
	assert.Empty(t, r.LastError(), "a cancellation is not an error")
	assert.Zero(t, provider.total(), "the debounced call never fired")
}

func TestCloseRejectsFurtherChecks(t *testing.T) {
	r := newTestResolver(&fakeProvider{}, Config{DebounceWindow: time.Millisecond})
	r.Close()

	outcome := <-r.Check(context.Background(), query("2024-06-01", "2024-06-02"))
	assert.True(t, outcome.Cancelled)
}
