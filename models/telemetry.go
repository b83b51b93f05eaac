package models

import "time"

// Severity is the fixed classification used uniformly across telemetry.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorRecord is one entry in the append-only error log.
type ErrorRecord struct {
	Error     string            `json:"error"`
	Component string            `json:"component"`
	Step      string            `json:"step"`
	Action    string            `json:"action"`
	Severity  Severity          `json:"severity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// FunnelEvent records the guest's progress through the booking flow.
type FunnelEvent struct {
	Step      string            `json:"step"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// TelemetryStats aggregates the stored error records.
type TelemetryStats struct {
	Total       int              `json:"total"`
	ByComponent map[string]int   `json:"byComponent"`
	BySeverity  map[Severity]int `json:"bySeverity"`
	ByStep      map[string]int   `json:"byStep"`
}
