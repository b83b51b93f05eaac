// Package booking owns the booking flow state machine: the authoritative
// step, the accumulated draft, and the ordered orchestration of
// availability, pricing, payment and submission.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripnest/models"
	"tripnest/services/availability"
	"tripnest/services/payment"
	"tripnest/services/pricing"
	"tripnest/services/telemetry"
	"tripnest/services/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Deps are the collaborators a flow drives. The flow is the single
// writer of the draft; collaborators are stateless or hold only their
// own transient caches.
type Deps struct {
	Resolver  *availability.Resolver
	Pricing   *pricing.Service
	Payments  *payment.Coordinator
	Submitter Submitter
	Validator *validation.Validator
	Sink      *telemetry.Sink
	Logger    *zap.Logger
	UserID    string
}

// Flow is one guest's booking transaction, from date selection through
// confirmation. It processes one user-initiated transition at a time.
type Flow struct {
	deps   Deps
	logger *zap.Logger

	mu           sync.Mutex
	draft        *models.BookingDraft
	fieldErrors  validation.FieldErrors
	confirmation *models.PaymentConfirmation
	submitting   bool
	bookingID    string
	// epoch invalidates in-flight work when the flow is navigated or
	// cancelled underneath it.
	epoch uint64
}

// NewFlow starts a fresh draft for the hotel at the dates step.
func NewFlow(deps Deps, hotelID string) *Flow {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Flow{
		deps:   deps,
		logger: logger,
		draft: &models.BookingDraft{
			ID:        uuid.New().String(),
			HotelID:   hotelID,
			Step:      models.StepDates,
			CreatedAt: time.Now(),
		},
	}
	deps.Sink.TrackFunnel(string(models.StepDates), "entered", map[string]string{"hotelId": hotelID})
	return f
}

// SetDates records the stay dates. Changing dates invalidates the held
// availability result and pricing quote.
func (f *Flow) SetDates(checkIn, checkOut time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step.Terminal() {
		return ErrFlowClosed
	}
	if f.draft.Step != models.StepDates {
		return &StepError{Code: "wrong-step", Message: "dates can only be changed on the dates step"}
	}
	if !checkOut.After(checkIn) {
		return &StepError{Code: "invalid-dates", Message: "check-out date must be after check-in date"}
	}

	changed := f.draft.CheckIn == nil || f.draft.CheckOut == nil ||
		!f.draft.CheckIn.Equal(checkIn) || !f.draft.CheckOut.Equal(checkOut)
	f.draft.CheckIn = &checkIn
	f.draft.CheckOut = &checkOut
	if changed {
		f.draft.Availability = nil
		f.draft.Pricing = nil
		f.epoch++
	}
	return nil
}

// SelectRoom commits a room choice from the current availability result.
// Choosing a different room invalidates the pricing quote.
func (f *Flow) SelectRoom(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step.Terminal() {
		return ErrFlowClosed
	}
	if f.draft.Step != models.StepRooms {
		return &StepError{Code: "wrong-step", Message: "room selection is only available on the rooms step"}
	}
	if f.draft.Availability == nil {
		return &StepError{Code: "no-availability", Message: "no availability loaded for the selected dates"}
	}
	room, ok := f.draft.Availability.Room(roomID)
	if !ok {
		return &StepError{Code: "unknown-room", Message: fmt.Sprintf("room %q is not offered for these dates", roomID)}
	}

	if f.draft.SelectedRoom == nil || f.draft.SelectedRoom.ID != room.ID {
		f.draft.Pricing = nil
	}
	selected := *room
	f.draft.SelectedRoom = &selected
	return nil
}

// SetGuestInfo records the guest details captured on the guest-info step.
func (f *Flow) SetGuestInfo(info models.GuestInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step.Terminal() {
		return ErrFlowClosed
	}
	if f.draft.Step != models.StepGuestInfo {
		return &StepError{Code: "wrong-step", Message: "guest info can only be changed on the guest-info step"}
	}
	f.draft.Guest = info
	f.fieldErrors = nil
	return nil
}

// ValidateGuestField runs the advisory blur-time check for one field.
// It never gates progression.
func (f *Flow) ValidateGuestField(field, value string) (string, bool) {
	return f.deps.Validator.ValidateField(field, value)
}

// CanProceed reports whether the current step's completion predicate
// holds. Payment and processing advance internally, never by user action.
func (f *Flow) CanProceed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.draft.Step {
	case models.StepDates:
		return f.draft.CheckIn != nil && f.draft.CheckOut != nil &&
			f.draft.CheckOut.After(*f.draft.CheckIn)
	case models.StepRooms:
		return f.draft.SelectedRoom != nil
	case models.StepGuestInfo:
		return f.deps.Validator.Validate(f.draft.Guest) == nil
	default:
		return false
	}
}

// Next drives the guarded forward transition for the current step.
func (f *Flow) Next(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step.Terminal() {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	step := f.draft.Step
	f.mu.Unlock()

	switch step {
	case models.StepDates:
		return f.advanceFromDates(ctx)
	case models.StepRooms:
		return f.advanceFromRooms(ctx)
	case models.StepGuestInfo:
		return f.advanceFromGuestInfo(ctx)
	case models.StepPayment:
		return &StepError{Code: "wrong-step", Message: "payment advances via ConfirmPayment, not Next"}
	default:
		return &StepError{Code: "wrong-step", Message: string(step) + " does not advance by user action"}
	}
}

// advanceFromDates resolves availability for the chosen dates and moves
// to the rooms step. A result already held for the exact same query is
// reused without a fresh resolver call.
func (f *Flow) advanceFromDates(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step != models.StepDates {
		f.mu.Unlock()
		return &StepError{Code: "wrong-step", Message: "not on the dates step"}
	}
	if f.draft.CheckIn == nil || f.draft.CheckOut == nil || !f.draft.CheckOut.After(*f.draft.CheckIn) {
		f.mu.Unlock()
		return &StepError{Code: "invalid-dates", Message: "select a valid date range first"}
	}

	query := models.AvailabilityQuery{
		HotelID:  f.draft.HotelID,
		CheckIn:  f.draft.CheckIn.Format(dateLayout),
		CheckOut: f.draft.CheckOut.Format(dateLayout),
	}

	if f.draft.Availability != nil && f.draft.Availability.Query == query {
		f.enterRoomsLocked()
		f.mu.Unlock()
		return nil
	}

	epoch := f.epoch
	f.mu.Unlock()

	outcome := <-f.deps.Resolver.Check(ctx, query)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch || f.draft.Step != models.StepDates {
		return ErrCancelled
	}

	switch {
	case outcome.Cancelled:
		return ErrCancelled
	case outcome.Err != nil:
		f.deps.Sink.LogAPIError(outcome.Err, telemetry.Context{
			Component: "availability",
			Step:      string(models.StepDates),
			Action:    "check-availability",
		})
		return &StepError{Code: "availability-failed", Message: "could not check availability, please try again", Err: outcome.Err}
	}

	res := outcome.Result
	if !res.Available || len(res.Rooms) == 0 {
		return &StepError{Code: "no-rooms", Message: "no rooms available for the selected dates"}
	}

	f.draft.Availability = res
	// A previously selected room survives a date change only if the new
	// result still offers it.
	if f.draft.SelectedRoom != nil {
		if _, ok := res.Room(f.draft.SelectedRoom.ID); !ok {
			f.draft.SelectedRoom = nil
		}
	}
	f.enterRoomsLocked()
	return nil
}

func (f *Flow) enterRoomsLocked() {
	f.draft.Step = models.StepRooms
	f.deps.Sink.TrackFunnel(string(models.StepDates), "completed", nil)
}

// advanceFromRooms prices the committed selection and moves to guest-info.
func (f *Flow) advanceFromRooms(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step != models.StepRooms {
		f.mu.Unlock()
		return &StepError{Code: "wrong-step", Message: "not on the rooms step"}
	}
	if f.draft.SelectedRoom == nil {
		f.mu.Unlock()
		return &StepError{Code: "no-room-selected", Message: "select a room first"}
	}

	hotelID := f.draft.HotelID
	roomID := f.draft.SelectedRoom.ID
	checkIn := f.draft.CheckIn.Format(dateLayout)
	checkOut := f.draft.CheckOut.Format(dateLayout)

	if q := f.draft.Pricing; q != nil && q.RoomID == roomID && q.CheckIn == checkIn && q.CheckOut == checkOut {
		f.enterGuestInfoLocked()
		f.mu.Unlock()
		return nil
	}

	epoch := f.epoch
	f.mu.Unlock()

	quote, err := f.deps.Pricing.Quote(ctx, hotelID, roomID, checkIn, checkOut)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch || f.draft.Step != models.StepRooms {
		return ErrCancelled
	}
	if err != nil {
		f.deps.Sink.LogAPIError(err, telemetry.Context{
			Component: "pricing",
			Step:      string(models.StepRooms),
			Action:    "get-pricing",
		})
		return &StepError{Code: "pricing-failed", Message: "could not price this room, please try again", Err: err}
	}

	f.draft.Pricing = quote
	f.enterGuestInfoLocked()
	return nil
}

func (f *Flow) enterGuestInfoLocked() {
	f.draft.Step = models.StepGuestInfo
	f.deps.Sink.TrackFunnel(string(models.StepRooms), "completed", nil)
}

// advanceFromGuestInfo runs the authoritative validation pass, creates
// the payment intent for the current quote total, and enters payment.
// Intent-creation failure keeps the flow at guest-info with a retry
// affordance instead of advancing to a degraded payment state.
func (f *Flow) advanceFromGuestInfo(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step != models.StepGuestInfo {
		f.mu.Unlock()
		return &StepError{Code: "wrong-step", Message: "not on the guest-info step"}
	}
	if fieldErrs := f.deps.Validator.Validate(f.draft.Guest); fieldErrs != nil {
		f.fieldErrors = fieldErrs
		f.mu.Unlock()
		return &ValidationError{Fields: fieldErrs}
	}
	f.fieldErrors = nil
	if f.draft.Pricing == nil {
		f.mu.Unlock()
		return &StepError{Code: "no-quote", Message: "pricing quote missing; reselect your room"}
	}

	quote := f.draft.Pricing
	epoch := f.epoch
	f.mu.Unlock()

	_, err := f.deps.Payments.CreateIntent(ctx, quote)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch || f.draft.Step != models.StepGuestInfo {
		return ErrCancelled
	}
	if err != nil {
		return &StepError{Code: "payment-setup-failed", Message: "we could not set up your payment, please try again", Err: err}
	}

	f.draft.Step = models.StepPayment
	f.deps.Sink.TrackFunnel(string(models.StepGuestInfo), "completed", nil)
	return nil
}

// ConfirmPayment confirms the active intent and, on success, submits the
// booking. The payment step owns this transition; the guest never drives
// it through Next. A submission failure returns the flow to payment for
// a user-initiated retry, keeping the confirmed payment.
func (f *Flow) ConfirmPayment(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step.Terminal() {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.draft.Step != models.StepPayment {
		f.mu.Unlock()
		return &StepError{Code: "wrong-step", Message: "no payment awaiting confirmation"}
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrProcessingLocked
	}
	quote := f.draft.Pricing
	if quote == nil {
		f.mu.Unlock()
		return &StepError{Code: "no-quote", Message: "pricing quote missing; reselect your room"}
	}
	alreadyConfirmed := f.confirmation != nil
	epoch := f.epoch
	f.mu.Unlock()

	if !alreadyConfirmed {
		confirmation, err := f.deps.Payments.Confirm(ctx, quote.Total)
		if err != nil {
			// Declines and stale-quote refusals are step-local; the guest
			// retries from the payment step. Telemetry is recorded by the
			// coordinator.
			return err
		}

		f.mu.Lock()
		if f.epoch != epoch || f.draft.Step != models.StepPayment {
			f.mu.Unlock()
			return ErrCancelled
		}
		f.confirmation = confirmation
		f.mu.Unlock()
	}

	return f.submit(ctx)
}

// submit assembles the final request and calls the booking endpoint
// exactly once per confirmed payment. No cancellation crosses this
// boundary; the flow reaches a terminal outcome or returns to payment.
func (f *Flow) submit(ctx context.Context) error {
	f.mu.Lock()
	if f.draft.Step.Terminal() {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	// Re-checked under the lock: a racing ConfirmPayment may have carried
	// the flow past payment since the entry checks.
	if f.draft.Step != models.StepPayment || f.submitting {
		f.mu.Unlock()
		return ErrProcessingLocked
	}
	f.submitting = true
	f.draft.Step = models.StepProcessing
	f.deps.Sink.TrackFunnel(string(models.StepPayment), "completed", nil)

	req := models.BookingRequest{
		HotelID:               f.draft.HotelID,
		RoomID:                f.draft.SelectedRoom.ID,
		CheckIn:               f.draft.CheckIn.Format(dateLayout),
		CheckOut:              f.draft.CheckOut.Format(dateLayout),
		Guest:                 f.draft.Guest,
		PaymentConfirmationID: f.confirmation.ConfirmationID,
		UserID:                f.deps.UserID,
	}
	f.mu.Unlock()

	bookingID, err := f.deps.Submitter.CreateBooking(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false

	if err != nil {
		f.deps.Sink.LogBookingStepError(err, telemetry.Context{
			Component: "booking-submission",
			Step:      string(models.StepProcessing),
			Action:    "create-booking",
		})
		// Back to payment: the guest retries without re-entering their
		// details, and the confirmed payment is kept.
		f.draft.Step = models.StepPayment
		return &StepError{Code: "submission-failed", Message: "we could not finalize your booking, please retry", Err: err}
	}

	f.bookingID = bookingID
	f.draft.Step = models.StepCompleted
	f.deps.Sink.TrackFunnel(string(models.StepProcessing), "completed", map[string]string{"bookingId": bookingID})
	f.logger.Info("booking completed",
		zap.String("bookingID", bookingID),
		zap.String("hotelID", req.HotelID))
	return nil
}

// Back moves to the previous step. Collected data for earlier steps is
// kept; validation errors are cleared. Leaving payment voids the active
// intent first, so the draft never sits behind a live intent.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step.Terminal() {
		return ErrFlowClosed
	}

	var target models.Step
	switch f.draft.Step {
	case models.StepRooms:
		target = models.StepDates
	case models.StepGuestInfo:
		target = models.StepRooms
	case models.StepPayment:
		target = models.StepGuestInfo
	case models.StepProcessing:
		return ErrProcessingLocked
	default:
		return &StepError{Code: "wrong-step", Message: "cannot go back from the first step"}
	}

	if f.draft.Step == models.StepPayment {
		if err := f.deps.Payments.Cancel(ctx); err != nil {
			if errors.Is(err, payment.ErrAlreadyConfirmed) {
				return &StepError{Code: "payment-confirmed", Message: "payment already confirmed; the booking is finalizing"}
			}
			return fmt.Errorf("failed to release payment intent: %w", err)
		}
	}

	f.epoch++
	f.fieldErrors = nil
	f.draft.Step = target
	return nil
}

// Cancel abandons the flow from any step except processing, discarding
// the draft and emitting a funnel-abandonment event. Cancelling is
// idempotent once the flow is terminal.
func (f *Flow) Cancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step.Terminal() {
		return nil
	}
	if f.draft.Step == models.StepProcessing || f.submitting {
		return ErrProcessingLocked
	}

	f.epoch++
	f.deps.Resolver.Clear()
	if f.confirmation == nil {
		if err := f.deps.Payments.Cancel(ctx); err != nil && !errors.Is(err, payment.ErrAlreadyConfirmed) {
			f.logger.Warn("failed to release payment intent on abandon", zap.Error(err))
		}
	}

	f.deps.Sink.TrackFunnel(string(f.draft.Step), "abandoned", map[string]string{"hotelId": f.draft.HotelID})

	// Discard accumulated data; only identity and the terminal step remain.
	f.draft = &models.BookingDraft{
		ID:        f.draft.ID,
		HotelID:   f.draft.HotelID,
		Step:      models.StepAbandoned,
		CreatedAt: f.draft.CreatedAt,
	}
	f.fieldErrors = nil
	f.confirmation = nil
	return nil
}

// Step returns the current state-machine step.
func (f *Flow) Step() models.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Step
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() models.BookingDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.draft
}

// FieldErrors returns the messages from the last authoritative
// validation pass, if any.
func (f *Flow) FieldErrors() validation.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldErrors
}

// BookingID returns the id assigned on successful submission.
func (f *Flow) BookingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookingID
}

// Record assembles the persistable record for a completed flow.
func (f *Flow) Record() (*models.BookingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.Step != models.StepCompleted {
		return nil, fmt.Errorf("booking not completed")
	}
	return &models.BookingRecord{
		BookingID:             f.bookingID,
		HotelID:               f.draft.HotelID,
		RoomID:                f.draft.SelectedRoom.ID,
		RoomName:              f.draft.SelectedRoom.Name,
		CheckIn:               f.draft.CheckIn.Format(dateLayout),
		CheckOut:              f.draft.CheckOut.Format(dateLayout),
		GuestName:             f.draft.Guest.FirstName + " " + f.draft.Guest.LastName,
		GuestEmail:            f.draft.Guest.Email,
		Total:                 f.draft.Pricing.Total,
		Currency:              f.draft.Pricing.Currency,
		PaymentConfirmationID: f.confirmation.ConfirmationID,
		CreatedAt:             time.Now(),
	}, nil
}
