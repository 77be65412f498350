package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

// Topics published by the verification service.
const (
	TopicVerifications = "sentinel.verifications"
	TopicAlerts        = "sentinel.alerts"
)

// BaseEvent contains fields common to all events.
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"ts"`
	SchemaVersion string    `json:"schema_version"`
	Producer      string    `json:"producer"`
	TraceID       string    `json:"trace_id,omitempty"`
}

// NewBaseEvent creates a new BaseEvent with generated IDs.
func NewBaseEvent(producer, schemaVersion string) BaseEvent {
	return BaseEvent{
		EventID:       uuid.New().String(),
		Timestamp:     time.Now(),
		SchemaVersion: schemaVersion,
		Producer:      producer,
		TraceID:       uuid.New().String()[:16],
	}
}

// VerificationEvent records one full pass through the gatekeeper.
type VerificationEvent struct {
	BaseEvent
	Request        gatekeeper.TransferRequest `json:"request"`
	Verdict        gatekeeper.Verdict         `json:"verdict"`
	TrustScore     float64                    `json:"trust_score"`
	ResponseTimeMs int64                      `json:"response_time_ms"`
}

// AlertEvent is emitted for blocking verdicts at HIGH severity or above,
// feeding downstream notification channels.
type AlertEvent struct {
	BaseEvent
	Asset       string             `json:"asset"`
	Destination string             `json:"destination"`
	Network     string             `json:"network"`
	Verdict     gatekeeper.Verdict `json:"verdict"`
}
