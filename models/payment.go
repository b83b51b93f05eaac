package models

import "time"

// PaymentIntentHandle is the opaque processor-issued reference for one
// payment attempt, bound to the amount and currency it was created for.
// Raw payment credentials never cross this boundary.
type PaymentIntentHandle struct {
	ClientSecret string    `json:"clientSecret"`
	AmountMinor  int64     `json:"amountMinor"`
	Currency     string    `json:"currency"`
	QuoteTotal   float64   `json:"quoteTotal"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PaymentConfirmation is the outcome of a successful processor confirmation.
type PaymentConfirmation struct {
	ConfirmationID string    `json:"confirmationId"`
	ConfirmedAt    time.Time `json:"confirmedAt"`
}
