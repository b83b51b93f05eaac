package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tripnest/models"
)

// Submitter is the booking creation endpoint contract.
type Submitter interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (string, error)
}

// HTTPSubmitter posts the assembled booking request to the booking
// endpoint with the configured timeout budget.
type HTTPSubmitter struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSubmitter(baseURL string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSubmitter) CreateBooking(ctx context.Context, bookingReq models.BookingRequest) (string, error) {
	body, err := json.Marshal(bookingReq)
	if err != nil {
		return "", fmt.Errorf("failed to encode booking request: %w", err)
	}

	url := s.BaseURL + "/bookings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("booking request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("booking endpoint returned status %d", resp.StatusCode)
	}

	var out struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode booking response: %w", err)
	}
	if out.BookingID == "" {
		return "", fmt.Errorf("booking endpoint returned an empty booking id")
	}
	return out.BookingID, nil
}
