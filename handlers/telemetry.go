package handlers

import (
	"net/http"

	"tripnest/services/telemetry"

	"github.com/gin-gonic/gin"
)

// TelemetryHandler exposes the error/funnel sink for operational
// visibility. Read-only apart from the clear endpoint.
type TelemetryHandler struct {
	Sink *telemetry.Sink
}

func (h *TelemetryHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Sink.Stats())
}

func (h *TelemetryHandler) Records(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"errors": h.Sink.Records(),
		"funnel": h.Sink.FunnelEvents(),
	})
}

func (h *TelemetryHandler) Clear(c *gin.Context) {
	h.Sink.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
