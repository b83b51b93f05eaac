package models

// PricingQuote is derived from a committed room selection and date range.
// A quote is invalidated whenever the room or dates change; stale quotes
// must never be submitted for payment.
type PricingQuote struct {
	HotelID  string  `json:"hotelId"`
	RoomID   string  `json:"roomId"`
	CheckIn  string  `json:"checkInDate"`
	CheckOut string  `json:"checkOutDate"`
	Subtotal float64 `json:"subtotal"`
	Taxes    float64 `json:"taxes"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}
