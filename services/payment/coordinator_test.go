package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tripnest/models"
	"tripnest/services/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu sync.Mutex

	createErr   error
	confirmRes  *ConfirmResult
	confirmErr  error
	createCalls int
	confirms    int
	cancels     []string
	lastAmount  int64
	lastCur     string
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastAmount = amountMinor
	f.lastCur = currency
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &Intent{ClientSecret: "pi_123_secret_abc"}, nil
}

func (f *fakeProcessor) Confirm(ctx context.Context, clientSecret string) (*ConfirmResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if f.confirmRes != nil {
		return f.confirmRes, nil
	}
	return &ConfirmResult{Status: "succeeded", ConfirmationID: "pi_123"}, nil
}

func (f *fakeProcessor) CancelIntent(ctx context.Context, clientSecret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, clientSecret)
	return nil
}

func quoteFor(total float64) *models.PricingQuote {
	return &models.PricingQuote{
		HotelID:  "42",
		RoomID:   "deluxe-1",
		Subtotal: total,
		Total:    total,
		Currency: "USD",
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(45000), MinorUnits(450.00))
	assert.Equal(t, int64(9999), MinorUnits(99.99))
	assert.Equal(t, int64(0), MinorUnits(0))
}

func TestCreateIntentConvertsAmountAndCurrency(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	handle, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	assert.Equal(t, int64(45000), handle.AmountMinor)
	assert.Equal(t, "usd", handle.Currency)
	assert.Equal(t, int64(45000), proc.lastAmount)
	assert.Equal(t, "usd", proc.lastCur)
	assert.Equal(t, StateIntentReady, coord.State())
}

func TestCreateIntentFailureMovesToFailedAndReports(t *testing.T) {
	proc := &fakeProcessor{createErr: errors.New("gateway unreachable")}
	sink := telemetry.NewSink(nil)
	coord := NewCoordinator(proc, sink, nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.Error(t, err)
	assert.Equal(t, StateFailed, coord.State())
	assert.Nil(t, coord.Handle())

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, models.SeverityHigh, records[0].Severity)
	assert.Equal(t, "payment", records[0].Component)
}

func TestCreateIntentRefusedOnInsecureTransport(t *testing.T) {
	coord := NewCoordinator(&fakeProcessor{}, telemetry.NewSink(nil), nil, false)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	assert.ErrorIs(t, err, ErrInsecureTransport)

	_, err = coord.Confirm(context.Background(), 450.00)
	assert.ErrorIs(t, err, ErrInsecureTransport)
}

func TestConfirmSucceedsOnceAndStoresConfirmationID(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	conf, err := coord.Confirm(context.Background(), 450.00)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", conf.ConfirmationID)
	assert.Equal(t, StateSucceeded, coord.State())
	assert.Equal(t, "pi_123", coord.ConfirmationID())

	_, err = coord.Confirm(context.Background(), 450.00)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Equal(t, 1, proc.confirms)
}

func TestConfirmWithoutIntentFails(t *testing.T) {
	coord := NewCoordinator(&fakeProcessor{}, telemetry.NewSink(nil), nil, true)
	_, err := coord.Confirm(context.Background(), 450.00)
	assert.ErrorIs(t, err, ErrNoIntent)
}

func TestStaleQuoteIsRefused(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	_, err = coord.Confirm(context.Background(), 525.00)
	assert.ErrorIs(t, err, ErrStaleQuote)
	assert.Equal(t, 0, proc.confirms, "a stale handle must never reach the processor")

	// Recreating the intent against the new total clears the staleness.
	_, err = coord.CreateIntent(context.Background(), quoteFor(525.00))
	require.NoError(t, err)
	_, err = coord.Confirm(context.Background(), 525.00)
	assert.NoError(t, err)
}

func TestDeclineMapsToFixedMessage(t *testing.T) {
	proc := &fakeProcessor{confirmRes: &ConfirmResult{ErrorCode: "insufficient_funds"}}
	sink := telemetry.NewSink(nil)
	coord := NewCoordinator(proc, sink, nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	_, err = coord.Confirm(context.Background(), 450.00)
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "insufficient_funds", declined.Code)
	assert.Equal(t, MessageForCode("insufficient_funds"), declined.Message)
	assert.Equal(t, StateFailed, coord.State())

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, models.SeverityCritical, records[0].Severity)
	assert.Equal(t, "insufficient_funds", records[0].Metadata["errorCode"])
}

func TestConfirmRetriesDeclinedIntent(t *testing.T) {
	proc := &fakeProcessor{confirmRes: &ConfirmResult{ErrorCode: "card_declined"}}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	_, err = coord.Confirm(context.Background(), 450.00)
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	require.NotNil(t, coord.Handle(), "a decline keeps the intent for retry")

	// The guest supplies a new payment method and retries the same intent.
	proc.mu.Lock()
	proc.confirmRes = nil
	proc.mu.Unlock()

	conf, err := coord.Confirm(context.Background(), 450.00)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", conf.ConfirmationID)
	assert.Equal(t, StateSucceeded, coord.State())
	assert.Equal(t, 2, proc.confirms)
	assert.Equal(t, 1, proc.createCalls, "retry reuses the intent, never recreates it")
}

func TestConfirmAfterCreationFailureNeedsNewIntent(t *testing.T) {
	proc := &fakeProcessor{createErr: errors.New("gateway unreachable")}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.Error(t, err)

	_, err = coord.Confirm(context.Background(), 450.00)
	assert.ErrorIs(t, err, ErrNoIntent)
}

func TestUnknownDeclineCodeGetsFallbackMessage(t *testing.T) {
	assert.Equal(t, fallbackDeclineMessage, MessageForCode("made_up_code"))
	assert.NotEqual(t, fallbackDeclineMessage, MessageForCode("card_declined"))
}

func TestUnexpectedStatusIsUnrecoverable(t *testing.T) {
	proc := &fakeProcessor{confirmRes: &ConfirmResult{Status: "requires_action"}}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	_, err = coord.Confirm(context.Background(), 450.00)
	var unrec *UnrecoverableError
	require.ErrorAs(t, err, &unrec)
	assert.Equal(t, "requires_action", unrec.Status)
	assert.Equal(t, StateFailed, coord.State())
}

func TestCancelVoidsActiveIntent(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)

	require.NoError(t, coord.Cancel(context.Background()))
	assert.Equal(t, StateUninitialized, coord.State())
	assert.Nil(t, coord.Handle())
	require.Len(t, proc.cancels, 1)
	assert.Equal(t, "pi_123_secret_abc", proc.cancels[0])
}

func TestCancelAfterSuccessIsRefused(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	_, err := coord.CreateIntent(context.Background(), quoteFor(450.00))
	require.NoError(t, err)
	_, err = coord.Confirm(context.Background(), 450.00)
	require.NoError(t, err)

	assert.ErrorIs(t, coord.Cancel(context.Background()), ErrAlreadyConfirmed)
}

func TestCancelWithoutIntentIsANoOp(t *testing.T) {
	proc := &fakeProcessor{}
	coord := NewCoordinator(proc, telemetry.NewSink(nil), nil, true)

	require.NoError(t, coord.Cancel(context.Background()))
	assert.Empty(t, proc.cancels)
}
