package models

import "time"

// Step identifies the current state of a booking flow.
type Step string

const (
	StepDates      Step = "dates"
	StepRooms      Step = "rooms"
	StepGuestInfo  Step = "guest-info"
	StepPayment    Step = "payment"
	StepProcessing Step = "processing"
	StepCompleted  Step = "completed"
	StepAbandoned  Step = "abandoned"
)

// Terminal reports whether the step is a terminal outcome.
func (s Step) Terminal() bool {
	return s == StepCompleted || s == StepAbandoned
}

// BookingDraft is the single in-progress transaction owned by a booking flow.
// It is mutated exclusively by flow transition handlers.
type BookingDraft struct {
	ID           string              `json:"id"`
	HotelID      string              `json:"hotelId"`
	SelectedRoom *RoomOption         `json:"selectedRoom,omitempty"`
	CheckIn      *time.Time          `json:"checkInDate,omitempty"`
	CheckOut     *time.Time          `json:"checkOutDate,omitempty"`
	Guest        GuestInfo           `json:"guestInfo"`
	Availability *AvailabilityResult `json:"availability,omitempty"`
	Pricing      *PricingQuote       `json:"pricing,omitempty"`
	Step         Step                `json:"step"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Nights returns the stay length in nights, or 0 if dates are not set.
func (d *BookingDraft) Nights() int {
	if d.CheckIn == nil || d.CheckOut == nil {
		return 0
	}
	return int(d.CheckOut.Sub(*d.CheckIn).Hours() / 24)
}

// BookingRequest is the final payload sent to the booking creation endpoint.
type BookingRequest struct {
	HotelID               string    `json:"hotelId"`
	RoomID                string    `json:"roomId"`
	CheckIn               string    `json:"checkInDate"`
	CheckOut              string    `json:"checkOutDate"`
	Guest                 GuestInfo `json:"guestInfo"`
	PaymentConfirmationID string    `json:"paymentConfirmationId"`
	UserID                string    `json:"userId,omitempty"`
}

// BookingRecord is a confirmed booking persisted to the records store.
type BookingRecord struct {
	BookingID             string    `bson:"booking_id" json:"bookingId"`
	HotelID               string    `bson:"hotel_id" json:"hotelId"`
	RoomID                string    `bson:"room_id" json:"roomId"`
	RoomName              string    `bson:"room_name" json:"roomName"`
	CheckIn               string    `bson:"check_in" json:"checkInDate"`
	CheckOut              string    `bson:"check_out" json:"checkOutDate"`
	GuestName             string    `bson:"guest_name" json:"guestName"`
	GuestEmail            string    `bson:"guest_email" json:"guestEmail"`
	Total                 float64   `bson:"total" json:"total"`
	Currency              string    `bson:"currency" json:"currency"`
	PaymentConfirmationID string    `bson:"payment_confirmation_id" json:"paymentConfirmationId"`
	CreatedAt             time.Time `bson:"created_at" json:"createdAt"`
}
