// Package payment coordinates the tokenized-payment handshake for one
// booking attempt: intent creation against the priced total, a single
// confirmation, and mapping of processor failures to user messages.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"tripnest/models"
	"tripnest/services/telemetry"

	"go.uber.org/zap"
)

// State of the coordinator for the current booking attempt.
type State string

const (
	StateUninitialized  State = "uninitialized"
	StateIntentCreating State = "intent-creating"
	StateIntentReady    State = "intent-ready"
	StateConfirming     State = "confirming"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

var (
	// ErrStaleQuote means the quote changed after the intent was created.
	ErrStaleQuote = errors.New("payment intent is stale: pricing changed after creation")
	// ErrInsecureTransport means the active transport cannot carry a payment.
	ErrInsecureTransport = errors.New("refusing to process payment over insecure transport")
	// ErrNoIntent means no intent is ready for the requested operation.
	ErrNoIntent = errors.New("no payment intent ready")
	// ErrAlreadyConfirmed guards against re-confirming the same handle.
	ErrAlreadyConfirmed = errors.New("payment intent already confirmed")
)

// DeclinedError is a processor-reported payment failure carrying the
// user-facing message from the fixed lookup table.
type DeclinedError struct {
	Code    string
	Message string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// UnrecoverableError marks a confirmation outcome that is neither a
// success nor a mapped decline. Manual contact is required.
type UnrecoverableError struct {
	Status string
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("payment in unexpected state %q: please contact support", e.Status)
}

// Coordinator drives the payment lifecycle for one booking attempt.
type Coordinator struct {
	processor Processor
	sink      *telemetry.Sink
	logger    *zap.Logger
	secure    bool

	mu             sync.Mutex
	state          State
	handle         *models.PaymentIntentHandle
	confirmationID string
}

// NewCoordinator builds a coordinator. secure reports whether the
// active transport is trusted to carry payment traffic; when false the
// coordinator refuses to create or confirm intents.
func NewCoordinator(processor Processor, sink *telemetry.Sink, logger *zap.Logger, secure bool) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = telemetry.NewSink(logger)
	}
	return &Coordinator{
		processor: processor,
		sink:      sink,
		logger:    logger,
		secure:    secure,
		state:     StateUninitialized,
	}
}

// MinorUnits converts a decimal amount to the processor's minor-unit
// integer representation (cents), rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent creates one intent for the current quote total. It
// replaces any previous unconfirmed intent for this attempt. A failure
// here is flow-fatal for the caller: the flow returns to guest-info
// with a retry affordance rather than advancing to a degraded payment
// state.
func (c *Coordinator) CreateIntent(ctx context.Context, quote *models.PricingQuote) (*models.PaymentIntentHandle, error) {
	if quote == nil {
		return nil, fmt.Errorf("cannot create payment intent without a pricing quote")
	}
	if !c.secure {
		return nil, ErrInsecureTransport
	}

	c.mu.Lock()
	if c.state == StateConfirming {
		c.mu.Unlock()
		return nil, fmt.Errorf("confirmation in progress; cannot create a new intent")
	}
	c.state = StateIntentCreating
	c.mu.Unlock()

	amount := MinorUnits(quote.Total)
	currency := strings.ToLower(quote.Currency)
	intent, err := c.processor.CreateIntent(ctx, amount, currency, map[string]string{
		"hotelId": quote.HotelID,
		"roomId":  quote.RoomID,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.handle = nil
		c.mu.Unlock()
		c.sink.LogError(err, telemetry.Context{
			Component: "payment",
			Step:      string(models.StepPayment),
			Action:    "create-intent",
		}, models.SeverityHigh)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	handle := &models.PaymentIntentHandle{
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amount,
		Currency:     currency,
		QuoteTotal:   quote.Total,
		CreatedAt:    time.Now(),
	}

	c.mu.Lock()
	c.state = StateIntentReady
	c.handle = handle
	c.confirmationID = ""
	c.mu.Unlock()

	c.logger.Info("payment intent created",
		zap.Int64("amountMinor", amount),
		zap.String("currency", currency))
	return handle, nil
}

// Confirm confirms the active intent. quoteTotal is the flow's current
// quote total; if it no longer matches the amount the handle was created
// for, the stale handle is refused. A declined intent may be confirmed
// again; a succeeded one never is.
func (c *Coordinator) Confirm(ctx context.Context, quoteTotal float64) (*models.PaymentConfirmation, error) {
	if !c.secure {
		return nil, ErrInsecureTransport
	}

	c.mu.Lock()
	switch c.state {
	case StateIntentReady:
	case StateFailed:
		// A decline leaves the intent in place so the guest can retry
		// with another payment method. A creation failure leaves no
		// handle, so there is nothing to confirm yet.
		if c.handle == nil {
			c.mu.Unlock()
			return nil, ErrNoIntent
		}
	case StateSucceeded:
		c.mu.Unlock()
		return nil, ErrAlreadyConfirmed
	case StateConfirming:
		c.mu.Unlock()
		return nil, fmt.Errorf("confirmation already in progress")
	default:
		c.mu.Unlock()
		return nil, ErrNoIntent
	}
	handle := c.handle
	if handle == nil || MinorUnits(quoteTotal) != handle.AmountMinor {
		c.mu.Unlock()
		return nil, ErrStaleQuote
	}
	c.state = StateConfirming
	c.mu.Unlock()

	result, err := c.processor.Confirm(ctx, handle.ClientSecret)
	if err != nil {
		c.setState(StateFailed)
		c.sink.LogPaymentError(err, telemetry.Context{
			Step:   string(models.StepPayment),
			Action: "confirm",
		})
		return nil, fmt.Errorf("payment confirmation failed: %w", err)
	}

	if result.ErrorCode != "" {
		c.setState(StateFailed)
		declined := &DeclinedError{
			Code:    result.ErrorCode,
			Message: MessageForCode(result.ErrorCode),
		}
		c.sink.LogPaymentError(declined, telemetry.Context{
			Step:     string(models.StepPayment),
			Action:   "confirm",
			Metadata: map[string]string{"errorCode": result.ErrorCode},
		})
		return nil, declined
	}

	if result.Status != "succeeded" {
		c.setState(StateFailed)
		unrec := &UnrecoverableError{Status: result.Status}
		c.sink.LogPaymentError(unrec, telemetry.Context{
			Step:   string(models.StepPayment),
			Action: "confirm",
		})
		return nil, unrec
	}

	c.mu.Lock()
	c.state = StateSucceeded
	c.confirmationID = result.ConfirmationID
	c.mu.Unlock()

	c.logger.Info("payment confirmed", zap.String("confirmationID", result.ConfirmationID))
	return &models.PaymentConfirmation{
		ConfirmationID: result.ConfirmationID,
		ConfirmedAt:    time.Now(),
	}, nil
}

// Cancel voids the active intent, if any, and resets the attempt. Not
// permitted while a confirmation is outstanding or after success.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConfirming {
		c.mu.Unlock()
		return fmt.Errorf("cannot cancel while confirmation is in flight")
	}
	if c.state == StateSucceeded {
		c.mu.Unlock()
		return ErrAlreadyConfirmed
	}
	handle := c.handle
	c.state = StateUninitialized
	c.handle = nil
	c.confirmationID = ""
	c.mu.Unlock()

	if handle == nil {
		return nil
	}
	if err := c.processor.CancelIntent(ctx, handle.ClientSecret); err != nil {
		// The attempt is already reset locally; the orphaned intent
		// expires on the processor side.
		c.logger.Warn("failed to cancel payment intent", zap.Error(err))
	}
	return nil
}

// Reset drops all attempt state without contacting the processor.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUninitialized
	c.handle = nil
	c.confirmationID = ""
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// State returns the coordinator state for the current attempt.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle returns the active intent handle, if any.
func (c *Coordinator) Handle() *models.PaymentIntentHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// ConfirmationID returns the processor-assigned id after success.
func (c *Coordinator) ConfirmationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmationID
}
