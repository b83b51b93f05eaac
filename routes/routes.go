package routes

import (
	"time"

	"tripnest/config"
	"tripnest/handlers"
	"tripnest/middleware"

	"github.com/gin-gonic/gin"
)

// Register wires all endpoints for the booking engine.
func Register(r *gin.Engine, bh *handlers.BookingHandler, th *handlers.TelemetryHandler) {
	cfg := config.AppConfig

	booking := r.Group("/api/booking")
	{
		booking.POST("/flow",
			middleware.RateLimit("booking-create", cfg.BookingCreatePer10Min, 10*time.Minute),
			bh.StartFlow)
		booking.PUT("/flow/:sessionID/dates", bh.SetDates)
		// Next creates the payment intent on guest-info completion, so it
		// carries the same transport gate as confirmation.
		booking.POST("/flow/:sessionID/next",
			middleware.RequireSecureTransport(),
			middleware.RateLimit("availability", cfg.AvailabilityRatePerMin, time.Minute),
			bh.Next)
		booking.PUT("/flow/:sessionID/room", bh.SelectRoom)
		booking.PUT("/flow/:sessionID/guest", bh.SetGuestInfo)
		booking.POST("/flow/:sessionID/guest/validate-field", bh.ValidateGuestField)
		booking.POST("/flow/:sessionID/confirm",
			middleware.RequireSecureTransport(),
			bh.ConfirmPayment)
		booking.POST("/flow/:sessionID/back", bh.Back)
		booking.DELETE("/flow/:sessionID",
			middleware.RateLimit("modification", cfg.ModificationPerHour, time.Hour),
			bh.CancelFlow)
	}

	r.GET("/api/bookings/:bookingID", bh.GetBooking)

	telemetry := r.Group("/api/telemetry")
	{
		telemetry.GET("/stats", th.Stats)
		telemetry.GET("/records", th.Records)
		telemetry.POST("/clear", th.Clear)
	}
}
