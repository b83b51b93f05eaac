package models

// GuestInfo is the guest-supplied data captured during the guest-info
// step. Validation rules live in services/validation.
type GuestInfo struct {
	FirstName       string `json:"firstName" validate:"required,min=2,max=50,safetext"`
	LastName        string `json:"lastName" validate:"required,min=2,max=50,safetext"`
	Email           string `json:"email" validate:"required,email,safetext"`
	Phone           string `json:"phone" validate:"required,phonenumber,safetext"`
	Country         string `json:"country" validate:"required,knowncountry,safetext"`
	SpecialRequests string `json:"specialRequests" validate:"omitempty,max=500,safetext"`
}

// Complete reports whether every required field has been supplied.
// It says nothing about field validity.
func (g GuestInfo) Complete() bool {
	return g.FirstName != "" && g.LastName != "" && g.Email != "" &&
		g.Phone != "" && g.Country != ""
}
