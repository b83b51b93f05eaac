package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tripnest/models"
)

// Provider is the upstream availability contract. Any transport satisfies
// it; the production implementation is HTTP.
type Provider interface {
	CheckAvailability(ctx context.Context, query models.AvailabilityQuery) (*models.AvailabilityResult, error)
}

// HTTPProvider calls the availability endpoint with the configured
// timeout budget.
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

func (p *HTTPProvider) CheckAvailability(ctx context.Context, query models.AvailabilityQuery) (*models.AvailabilityResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode availability query: %w", err)
	}

	url := p.BaseURL + "/availability/check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build availability request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Available bool                `json:"available"`
		Rooms     []models.RoomOption `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode availability response: %w", err)
	}

	return &models.AvailabilityResult{
		Query:     query,
		Available: out.Available,
		Rooms:     out.Rooms,
	}, nil
}
