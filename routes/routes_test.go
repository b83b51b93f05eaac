package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tripnest/config"
	"tripnest/handlers"
	"tripnest/services/booking"
	"tripnest/services/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func productionRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := config.AppConfig
	config.AppConfig.Env = "production"
	config.AppConfig.AvailabilityRatePerMin = 20
	config.AppConfig.BookingCreatePer10Min = 5
	config.AppConfig.ModificationPerHour = 3
	t.Cleanup(func() { config.AppConfig = prev })

	r := gin.New()
	Register(r,
		&handlers.BookingHandler{Store: booking.NewFlowStore()},
		&handlers.TelemetryHandler{Sink: telemetry.NewSink(nil)})
	return r
}

// Both intent-carrying routes refuse plaintext HTTP in production: the
// confirm endpoint, and the next endpoint that creates the intent on
// guest-info completion.
func TestPaymentRoutesRefusePlaintextInProduction(t *testing.T) {
	r := productionRouter(t)

	for _, path := range []string{
		"/api/booking/flow/abc/next",
		"/api/booking/flow/abc/confirm",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUpgradeRequired, w.Code, path)
	}
}

func TestPaymentRoutesAcceptForwardedHTTPS(t *testing.T) {
	r := productionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/flow/abc/next", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)

	// Past the transport gate the unknown session is the handler's call.
	assert.Equal(t, http.StatusNotFound, w.Code)
}
