package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripnest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) GetPricing(ctx context.Context, hotelID, roomID, checkIn, checkOut string) (*models.PricingQuote, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &models.PricingQuote{
		HotelID:  hotelID,
		RoomID:   roomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Subtotal: 400.00,
		Taxes:    50.00,
		Total:    450.00,
		Currency: "USD",
	}, nil
}

func TestQuoteCachesByExactSelection(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, NewMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	first, err := svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 450.00, first.Total)

	_, err = svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls, "the exact selection is served from cache")

	_, err = svc.Quote(ctx, "42", "standard-2", "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "a different room misses the cache")
}

func TestQuoteExpiresWithTTL(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, NewMemoryCache(), 10*time.Millisecond, nil)
	ctx := context.Background()

	_, err := svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestQuoteFailuresAreNotCached(t *testing.T) {
	provider := &countingProvider{err: errors.New("pricing down")}
	svc := NewService(provider, NewMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	_, err := svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.Error(t, err)

	provider.err = nil
	quote, err := svc.Quote(ctx, "42", "deluxe-1", "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 450.00, quote.Total)
	assert.Equal(t, 2, provider.calls)
}
