// Package validation checks guest-supplied data against format rules and
// injection-attack heuristics before it enters the booking flow.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"tripnest/models"

	"github.com/go-playground/validator/v10"
)

const (
	nameMinLen         = 2
	nameMaxLen         = 50
	requestsMaxLen     = 500
	phoneMinDigits     = 7
	invalidCharsReason = "contains invalid characters"
)

// Injection heuristics. Any hit fails validation with the same generic
// reason, regardless of which pattern matched.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)javascript\s*:`),
}

var phoneCharClass = regexp.MustCompile(`^[0-9+()\-.\s]+$`)

// Countries accepted by the guest-info form.
var allowedCountries = []string{
	"United States", "Canada", "United Kingdom", "Germany", "France",
	"Spain", "Italy", "Netherlands", "Australia", "New Zealand",
	"Japan", "South Korea", "Brazil", "Mexico", "India",
	"South Africa", "Kenya", "Nigeria", "United Arab Emirates", "Singapore",
}

// FieldErrors maps a field name to its user-facing validation message.
type FieldErrors map[string]string

// Validator validates guest info records. The same instance serves both
// the advisory per-field pass and the authoritative pre-submission pass.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return !containsInjection(fl.Field().String())
	})
	v.RegisterValidation("phonenumber", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	v.RegisterValidation("knowncountry", func(fl validator.FieldLevel) bool {
		return knownCountry(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate runs the authoritative pass over a full guest record. A nil
// return means the record may gate progression to payment.
func (gv *Validator) Validate(info models.GuestInfo) FieldErrors {
	err := gv.v.Struct(info)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"guestInfo": "invalid guest information"}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		field := jsonField(fe.Field())
		// Keep the first error per field.
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = messageFor(field, fe.Tag())
	}
	return out
}

// ValidateField runs the advisory per-field pass used for blur feedback.
// It never gates progression.
func (gv *Validator) ValidateField(field, value string) (string, bool) {
	if containsInjection(value) {
		return invalidCharsReason, false
	}
	switch field {
	case "firstName", "lastName":
		// Rune count, not bytes, so multibyte names get the same verdict
		// here as from the authoritative struct pass.
		if n := utf8.RuneCountInString(value); n < nameMinLen || n > nameMaxLen {
			return messageFor(field, "min"), false
		}
	case "email":
		if gv.v.Var(value, "required,email") != nil {
			return messageFor(field, "email"), false
		}
	case "phone":
		if !validPhone(value) {
			return messageFor(field, "phonenumber"), false
		}
	case "country":
		if !knownCountry(value) {
			return messageFor(field, "knowncountry"), false
		}
	case "specialRequests":
		if utf8.RuneCountInString(value) > requestsMaxLen {
			return messageFor(field, "max"), false
		}
	}
	return "", true
}

// Countries returns the fixed accepted-country list.
func Countries() []string {
	out := make([]string, len(allowedCountries))
	copy(out, allowedCountries)
	return out
}

func containsInjection(s string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func validPhone(s string) bool {
	if s == "" || !phoneCharClass.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= phoneMinDigits
}

func knownCountry(s string) bool {
	for _, c := range allowedCountries {
		if c == s {
			return true
		}
	}
	return false
}

func jsonField(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func messageFor(field, tag string) string {
	if tag == "safetext" {
		return invalidCharsReason
	}
	switch field {
	case "firstName", "lastName":
		switch tag {
		case "required":
			return "name is required"
		default:
			return "name must be between 2 and 50 characters"
		}
	case "email":
		if tag == "required" {
			return "email is required"
		}
		return "enter a valid email address"
	case "phone":
		if tag == "required" {
			return "phone number is required"
		}
		return "enter a valid phone number"
	case "country":
		if tag == "required" {
			return "country is required"
		}
		return "select a country from the list"
	case "specialRequests":
		return "special requests must be 500 characters or fewer"
	}
	return "invalid value"
}
