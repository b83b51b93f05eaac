package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeProcessor implements Processor on Stripe PaymentIntents. The
// global stripe.Key is set at startup.
type StripeProcessor struct{}

func NewStripeProcessor() *StripeProcessor {
	return &StripeProcessor{}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe intent creation failed: %w", err)
	}
	return &Intent{ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProcessor) Confirm(ctx context.Context, clientSecret string) (*ConfirmResult, error) {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(id, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return &ConfirmResult{
				ErrorCode:    errorCode(stripeErr),
				ErrorMessage: stripeErr.Msg,
			}, nil
		}
		return nil, fmt.Errorf("stripe intent lookup failed: %w", err)
	}

	if pi.LastPaymentError != nil {
		return &ConfirmResult{
			ErrorCode:    errorCode(pi.LastPaymentError),
			ErrorMessage: pi.LastPaymentError.Msg,
		}, nil
	}

	return &ConfirmResult{
		Status:         string(pi.Status),
		ConfirmationID: pi.ID,
	}, nil
}

func (p *StripeProcessor) CancelIntent(ctx context.Context, clientSecret string) error {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return err
	}
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(id, params); err != nil {
		return fmt.Errorf("stripe intent cancellation failed: %w", err)
	}
	return nil
}

// errorCode prefers the card network decline code over the generic
// Stripe error code.
func errorCode(e *stripe.Error) string {
	if e.DeclineCode != "" {
		return string(e.DeclineCode)
	}
	return string(e.Code)
}

// Client secrets have the form "pi_xxx_secret_yyy".
func intentIDFromSecret(clientSecret string) (string, error) {
	id, _, found := strings.Cut(clientSecret, "_secret")
	if !found || id == "" {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}
