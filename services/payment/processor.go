package payment

import "context"

// Intent is the opaque reference returned by the processor when an
// intent is created. Only the client secret crosses to the payment UI.
type Intent struct {
	ClientSecret string
}

// ConfirmResult is the processor's confirmation outcome. Either Status
// and ConfirmationID are set, or ErrorCode and ErrorMessage are.
type ConfirmResult struct {
	Status         string
	ConfirmationID string
	ErrorCode      string
	ErrorMessage   string
}

// Processor is the external tokenized-payment contract. Raw payment
// credentials never pass through it.
type Processor interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	Confirm(ctx context.Context, clientSecret string) (*ConfirmResult, error)
	CancelIntent(ctx context.Context, clientSecret string) error
}
