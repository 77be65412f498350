package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

// Trail records every verification decision: an in-memory ring for
// querying recent verdicts, plus publication to the verification topic.
type Trail struct {
	mu       sync.Mutex
	producer bus.Producer
	entries  []bus.VerificationEvent
	maxBuf   int
}

// NewTrail creates a new audit trail. maxBuf caps the in-memory buffer;
// once full, the oldest entries are discarded (FIFO). A maxBuf of 0 means
// entries are only published.
func NewTrail(producer bus.Producer, maxBuf int) *Trail {
	if maxBuf < 0 {
		maxBuf = 0
	}
	return &Trail{
		producer: producer,
		entries:  make([]bus.VerificationEvent, 0, maxBuf),
		maxBuf:   maxBuf,
	}
}

// Record logs a verification event and publishes it. High-severity
// blocking verdicts additionally raise an alert event.
func (t *Trail) Record(ctx context.Context, event bus.VerificationEvent) {
	t.mu.Lock()
	if t.maxBuf > 0 {
		if len(t.entries) >= t.maxBuf {
			copy(t.entries, t.entries[1:])
			t.entries[len(t.entries)-1] = event
		} else {
			t.entries = append(t.entries, event)
		}
	}
	t.mu.Unlock()

	if t.producer == nil {
		return
	}

	if err := t.producer.PublishJSON(ctx, bus.TopicVerifications, event.TraceID, event); err != nil {
		log.Error().Err(err).
			Str("trace_id", event.TraceID).
			Str("status", string(event.Verdict.Status)).
			Msg("audit: failed to publish verification event")
	}

	if alerting(event.Verdict.Risk) {
		alert := bus.AlertEvent{
			BaseEvent:   event.BaseEvent,
			Asset:       event.Request.Asset,
			Destination: event.Request.Destination,
			Network:     event.Request.Network,
			Verdict:     event.Verdict,
		}
		if err := t.producer.PublishJSON(ctx, bus.TopicAlerts, event.TraceID, alert); err != nil {
			log.Error().Err(err).
				Str("trace_id", event.TraceID).
				Msg("audit: failed to publish alert event")
		}
	}
}

// Recent returns a copy of the buffered verification events.
func (t *Trail) Recent() []bus.VerificationEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]bus.VerificationEvent, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of buffered entries.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func alerting(risk gatekeeper.Risk) bool {
	switch risk {
	case gatekeeper.RiskHigh, gatekeeper.RiskCritical, gatekeeper.RiskDefcon1:
		return true
	default:
		return false
	}
}
