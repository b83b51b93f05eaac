package payment

// Fixed mapping from processor error codes to user-facing messages.
// Unmatched codes fall back to a generic retry message.
var declineMessages = map[string]string{
	"card_declined":           "Your card was declined. Please try a different card.",
	"insufficient_funds":      "Your card has insufficient funds.",
	"expired_card":            "Your card has expired. Please use a different card.",
	"incorrect_cvc":           "The security code is incorrect. Please check and try again.",
	"processing_error":        "An error occurred while processing your card. Please try again.",
	"incorrect_number":        "The card number is incorrect. Please check and try again.",
	"invalid_expiry_month":    "The expiration month is invalid.",
	"invalid_expiry_year":     "The expiration year is invalid.",
	"authentication_required": "Your bank requires additional authentication. Please try again.",
}

const fallbackDeclineMessage = "Your payment could not be completed. Please try again or use a different payment method."

// MessageForCode maps a processor error code to its user-facing message.
func MessageForCode(code string) string {
	if msg, ok := declineMessages[code]; ok {
		return msg
	}
	return fallbackDeclineMessage
}
