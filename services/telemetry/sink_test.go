package telemetry

import (
	"errors"
	"fmt"
	"testing"

	"tripnest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogErrorAppendsRecord(t *testing.T) {
	sink := NewSink(nil)

	sink.LogError(errors.New("boom"), Context{
		Component: "availability",
		Step:      "dates",
		Action:    "check-availability",
	}, models.SeverityMedium)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Error)
	assert.Equal(t, "availability", records[0].Component)
	assert.Equal(t, models.SeverityMedium, records[0].Severity)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestNilErrorsAreIgnored(t *testing.T) {
	sink := NewSink(nil)
	sink.LogError(nil, Context{Component: "x"}, models.SeverityLow)
	assert.Empty(t, sink.Records())
}

func TestSpecializedEntryPointsForceSeverity(t *testing.T) {
	sink := NewSink(nil)

	sink.LogBookingStepError(errors.New("step failed"), Context{Component: "booking", Step: "rooms"})
	sink.LogPaymentError(errors.New("declined"), Context{Step: "payment"})
	sink.LogAPIError(errors.New("timeout"), Context{Component: "pricing"})

	records := sink.Records()
	require.Len(t, records, 3)
	assert.Equal(t, models.SeverityHigh, records[0].Severity)
	assert.Equal(t, models.SeverityCritical, records[1].Severity)
	assert.Equal(t, "payment", records[1].Component, "payment errors default their component")
	assert.Equal(t, models.SeverityHigh, records[2].Severity)
}

func TestDisabledSinkDropsWritesSilently(t *testing.T) {
	sink := NewSink(nil)
	sink.SetEnabled(false)

	for i := 0; i < 5; i++ {
		sink.LogError(fmt.Errorf("dropped %d", i), Context{Component: "booking"}, models.SeverityHigh)
	}
	assert.Empty(t, sink.Records())

	sink.SetEnabled(true)
	sink.LogError(errors.New("recorded"), Context{Component: "booking"}, models.SeverityHigh)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "recorded", records[0].Error)
}

func TestClearDropsEverything(t *testing.T) {
	sink := NewSink(nil)
	sink.LogError(errors.New("boom"), Context{Component: "x"}, models.SeverityLow)
	sink.TrackFunnel("dates", "entered", nil)

	sink.Clear()
	assert.Empty(t, sink.Records())
	assert.Empty(t, sink.FunnelEvents())
}

func TestStatsAggregation(t *testing.T) {
	sink := NewSink(nil)

	sink.LogError(errors.New("a"), Context{Component: "availability", Step: "dates"}, models.SeverityLow)
	sink.LogError(errors.New("b"), Context{Component: "availability", Step: "dates"}, models.SeverityHigh)
	sink.LogPaymentError(errors.New("c"), Context{Step: "payment"})

	stats := sink.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByComponent["availability"])
	assert.Equal(t, 1, stats.ByComponent["payment"])
	assert.Equal(t, 1, stats.BySeverity[models.SeverityLow])
	assert.Equal(t, 1, stats.BySeverity[models.SeverityHigh])
	assert.Equal(t, 1, stats.BySeverity[models.SeverityCritical])
	assert.Equal(t, 2, stats.ByStep["dates"])
	assert.Equal(t, 1, stats.ByStep["payment"])
}

func TestFunnelEventsAreRecordedInOrder(t *testing.T) {
	sink := NewSink(nil)
	sink.TrackFunnel("dates", "entered", map[string]string{"hotelId": "42"})
	sink.TrackFunnel("dates", "completed", nil)

	events := sink.FunnelEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "entered", events[0].Action)
	assert.Equal(t, "completed", events[1].Action)
	assert.Equal(t, "42", events[0].Metadata["hotelId"])
}
