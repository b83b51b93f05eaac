package models

import "fmt"

// AvailabilityQuery is the exact (hotel, check-in, check-out) triple a
// result is valid for. Dates use the "2006-01-02" wire format.
type AvailabilityQuery struct {
	HotelID  string `json:"hotelId"`
	CheckIn  string `json:"checkInDate"`
	CheckOut string `json:"checkOutDate"`
}

// CacheKey returns the cache key for this exact query triple.
func (q AvailabilityQuery) CacheKey() string {
	return fmt.Sprintf("availability:%s:%s:%s", q.HotelID, q.CheckIn, q.CheckOut)
}

// RoomOption is a bookable room returned by the availability provider.
type RoomOption struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Capacity  int     `json:"capacity"`
	BasePrice float64 `json:"basePrice"`
}

// AvailabilityResult carries the rooms available for one exact query
// triple. Results must not be reused for overlapping or shifted ranges.
type AvailabilityResult struct {
	Query     AvailabilityQuery `json:"query"`
	Available bool              `json:"available"`
	Rooms     []RoomOption      `json:"rooms"`
}

// Room returns the option with the given id, if present.
func (r *AvailabilityResult) Room(id string) (*RoomOption, bool) {
	for i := range r.Rooms {
		if r.Rooms[i].ID == id {
			return &r.Rooms[i], true
		}
	}
	return nil, false
}
