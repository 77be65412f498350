package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

func makeEvent(status gatekeeper.Status, risk gatekeeper.Risk) bus.VerificationEvent {
	return bus.VerificationEvent{
		BaseEvent: bus.NewBaseEvent("test", "1.0.0"),
		Request: gatekeeper.TransferRequest{
			Asset:       "USDT",
			OriginVenue: "Binance",
			Destination: "MetaMask",
			Network:     "ERC20",
		},
		Verdict: gatekeeper.Verdict{Status: status, Risk: risk, Message: "test"},
	}
}

func TestTrail_RecordAndRecent(t *testing.T) {
	producer := bus.NewStubProducer()
	trail := NewTrail(producer, 10)

	trail.Record(context.Background(), makeEvent(gatekeeper.StatusSafe, gatekeeper.RiskLow))

	assert.Equal(t, 1, trail.Len())
	msgs := producer.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, bus.TopicVerifications, msgs[0].Topic)
}

func TestTrail_AlertsOnHighSeverity(t *testing.T) {
	producer := bus.NewStubProducer()
	trail := NewTrail(producer, 10)

	trail.Record(context.Background(), makeEvent(gatekeeper.StatusBlacklisted, gatekeeper.RiskDefcon1))

	msgs := producer.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, bus.TopicVerifications, msgs[0].Topic)
	assert.Equal(t, bus.TopicAlerts, msgs[1].Topic)
}

func TestTrail_NoAlertOnMediumOrBelow(t *testing.T) {
	producer := bus.NewStubProducer()
	trail := NewTrail(producer, 10)

	trail.Record(context.Background(), makeEvent(gatekeeper.StatusUnexpectedContract, gatekeeper.RiskMedium))

	assert.Len(t, producer.Messages(), 1)
}

func TestTrail_FIFOEviction(t *testing.T) {
	trail := NewTrail(nil, 3)

	for i := 0; i < 5; i++ {
		ev := makeEvent(gatekeeper.StatusSafe, gatekeeper.RiskLow)
		ev.Request.Asset = fmt.Sprintf("ASSET%d", i)
		trail.Record(context.Background(), ev)
	}

	recent := trail.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "ASSET2", recent[0].Request.Asset)
	assert.Equal(t, "ASSET4", recent[2].Request.Asset)
}

func TestTrail_ZeroBufferOnlyPublishes(t *testing.T) {
	producer := bus.NewStubProducer()
	trail := NewTrail(producer, 0)

	trail.Record(context.Background(), makeEvent(gatekeeper.StatusSafe, gatekeeper.RiskLow))

	assert.Equal(t, 0, trail.Len())
	assert.Len(t, producer.Messages(), 1)
}
