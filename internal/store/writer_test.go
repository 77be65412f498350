package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

func TestVerificationWriter_Buffering(t *testing.T) {
	w := NewVerificationWriter(nil, 10, time.Second)

	event := bus.VerificationEvent{
		BaseEvent: bus.NewBaseEvent("test", "1.0"),
		Request:   gatekeeper.TransferRequest{Asset: "USDT", Network: "TRC20"},
		Verdict:   gatekeeper.Verdict{Status: gatekeeper.StatusSafe, Risk: gatekeeper.RiskLow},
	}

	require.NoError(t, w.Write(context.Background(), event))
	require.NoError(t, w.Write(context.Background(), event))

	w.mu.Lock()
	assert.Len(t, w.buf, 2)
	w.mu.Unlock()
}

func TestVerificationWriter_FlushEmptyIsNoop(t *testing.T) {
	w := NewVerificationWriter(nil, 10, time.Second)
	assert.NoError(t, w.Flush(context.Background()))
}

func TestVerificationWriter_WriteAfterClose(t *testing.T) {
	w := NewVerificationWriter(nil, 10, time.Second)
	require.NoError(t, w.Close(context.Background()))

	err := w.Write(context.Background(), bus.VerificationEvent{})
	assert.Error(t, err)
}

func TestVerificationWriter_Defaults(t *testing.T) {
	w := NewVerificationWriter(nil, 0, 0)
	assert.Equal(t, 500, w.batchSize)
	assert.Equal(t, 5*time.Second, w.flushInterval)
}
