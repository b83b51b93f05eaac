// Package telemetry is the in-memory error and funnel-event sink for the
// booking flow. It is write-only from the orchestration core's point of
// view: nothing here feeds back into control flow.
package telemetry

import (
	"sync"
	"time"

	"tripnest/models"

	"go.uber.org/zap"
)

// Context describes where an error happened.
type Context struct {
	Component string
	Step      string
	Action    string
	Metadata  map[string]string
}

// Sink is an append-only, mutex-guarded record store. Disabling it drops
// all writes silently; re-enabling resumes recording cleanly.
type Sink struct {
	logger *zap.Logger

	mu      sync.Mutex
	enabled bool
	records []models.ErrorRecord
	funnel  []models.FunnelEvent
}

// NewSink returns an enabled sink.
func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger, enabled: true}
}

// LogError appends a record at the given severity.
func (s *Sink) LogError(err error, ectx Context, severity models.Severity) {
	if err == nil {
		return
	}
	s.append(models.ErrorRecord{
		Error:     err.Error(),
		Component: ectx.Component,
		Step:      ectx.Step,
		Action:    ectx.Action,
		Severity:  severity,
		Metadata:  ectx.Metadata,
		Timestamp: time.Now(),
	})
}

// LogBookingStepError records a failure inside a flow step. Always high severity.
func (s *Sink) LogBookingStepError(err error, ectx Context) {
	s.LogError(err, ectx, models.SeverityHigh)
}

// LogPaymentError records a payment failure. Always critical severity.
func (s *Sink) LogPaymentError(err error, ectx Context) {
	if ectx.Component == "" {
		ectx.Component = "payment"
	}
	s.LogError(err, ectx, models.SeverityCritical)
}

// LogAPIError records a provider-call failure. Always high severity.
func (s *Sink) LogAPIError(err error, ectx Context) {
	s.LogError(err, ectx, models.SeverityHigh)
}

// TrackFunnel records a funnel event for the given step and action.
func (s *Sink) TrackFunnel(step, action string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.funnel = append(s.funnel, models.FunnelEvent{
		Step:      step,
		Action:    action,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
	s.logger.Info("funnel event",
		zap.String("step", step),
		zap.String("action", action))
}

func (s *Sink) append(rec models.ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.records = append(s.records, rec)
	s.logger.Error("telemetry error",
		zap.String("component", rec.Component),
		zap.String("step", rec.Step),
		zap.String("action", rec.Action),
		zap.String("severity", string(rec.Severity)),
		zap.String("error", rec.Error))
}

// Records returns a copy of all stored error records.
func (s *Sink) Records() []models.ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ErrorRecord, len(s.records))
	copy(out, s.records)
	return out
}

// FunnelEvents returns a copy of all stored funnel events.
func (s *Sink) FunnelEvents() []models.FunnelEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FunnelEvent, len(s.funnel))
	copy(out, s.funnel)
	return out
}

// Clear drops all stored records and funnel events.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.funnel = nil
}

// SetEnabled toggles recording. While disabled, writes are dropped silently.
func (s *Sink) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Stats aggregates stored error records by component, severity and step.
func (s *Sink) Stats() models.TelemetryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.TelemetryStats{
		Total:       len(s.records),
		ByComponent: make(map[string]int),
		BySeverity:  make(map[models.Severity]int),
		ByStep:      make(map[string]int),
	}
	for _, rec := range s.records {
		stats.ByComponent[rec.Component]++
		stats.BySeverity[rec.Severity]++
		if rec.Step != "" {
			stats.ByStep[rec.Step]++
		}
	}
	return stats
}
