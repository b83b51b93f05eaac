// Package pricing quotes a committed room selection and date range
// through the upstream pricing provider, with short-lived caching.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"tripnest/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Provider is the upstream pricing contract.
type Provider interface {
	GetPricing(ctx context.Context, hotelID, roomID, checkIn, checkOut string) (*models.PricingQuote, error)
}

// HTTPProvider calls the pricing endpoint with the configured timeout.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) GetPricing(ctx context.Context, hotelID, roomID, checkIn, checkOut string) (*models.PricingQuote, error) {
	q := url.Values{}
	q.Set("hotelId", hotelID)
	q.Set("roomId", roomID)
	q.Set("checkInDate", checkIn)
	q.Set("checkOutDate", checkOut)

	reqURL := fmt.Sprintf("%s/pricing?%s", p.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pricing request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Subtotal float64 `json:"subtotal"`
		Taxes    float64 `json:"taxes"`
		Total    float64 `json:"total"`
		Currency string  `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode pricing response: %w", err)
	}

	return &models.PricingQuote{
		HotelID:  hotelID,
		RoomID:   roomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Subtotal: out.Subtotal,
		Taxes:    out.Taxes,
		Total:    out.Total,
		Currency: out.Currency,
	}, nil
}

// Cache stores quotes keyed by (hotel, room, dates).
type Cache interface {
	Get(ctx context.Context, key string) (*models.PricingQuote, bool)
	Set(ctx context.Context, key string, quote *models.PricingQuote, ttl time.Duration)
}

// RedisCache backs the quote cache with Redis.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.PricingQuote, bool) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var quote models.PricingQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, false
	}
	return &quote, true
}

func (c *RedisCache) Set(ctx context.Context, key string, quote *models.PricingQuote, ttl time.Duration) {
	data, err := json.Marshal(quote)
	if err != nil {
		return
	}
	c.Client.Set(ctx, key, data, ttl)
}

// MemoryCache is the in-process quote cache used in tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	quote   *models.PricingQuote
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.PricingQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.quote, true
}

func (c *MemoryCache) Set(_ context.Context, key string, quote *models.PricingQuote, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{quote: quote, expires: time.Now().Add(ttl)}
}

// Service fronts the provider with the quote cache.
type Service struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	logger   *zap.Logger
}

func NewService(provider Provider, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{provider: provider, cache: cache, ttl: ttl, logger: logger}
}

// Quote returns the price for the selection, served from cache when the
// exact (hotel, room, dates) key is still fresh.
func (s *Service) Quote(ctx context.Context, hotelID, roomID, checkIn, checkOut string) (*models.PricingQuote, error) {
	key := fmt.Sprintf("pricing:%s:%s:%s:%s", hotelID, roomID, checkIn, checkOut)
	if quote, ok := s.cache.Get(ctx, key); ok {
		return quote, nil
	}

	quote, err := s.provider.GetPricing(ctx, hotelID, roomID, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing: %w", err)
	}
	s.cache.Set(ctx, key, quote, s.ttl)

	s.logger.Debug("pricing quote fetched",
		zap.String("hotelID", hotelID),
		zap.String("roomID", roomID),
		zap.Float64("total", quote.Total))
	return quote, nil
}
