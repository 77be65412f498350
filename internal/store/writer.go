package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/bus"
)

// Schema for the verification log table:
//
//	CREATE TABLE verification_logs (
//	    event_id        String,
//	    trace_id        String,
//	    ts              DateTime64(3),
//	    asset           LowCardinality(String),
//	    origin          LowCardinality(String),
//	    destination     String,
//	    network         LowCardinality(String),
//	    address         String,
//	    status          LowCardinality(String),
//	    risk            LowCardinality(String),
//	    threat_type     LowCardinality(String),
//	    trust_score     Float64,
//	    response_ms     Int64,
//	    payload         String
//	) ENGINE = MergeTree ORDER BY (ts, status)

// VerificationWriter batches verification events and flushes them to the
// verification_logs table periodically or when the batch fills.
type VerificationWriter struct {
	client        *Client
	batchSize     int
	flushInterval time.Duration

	mu         sync.Mutex
	buf        []bus.VerificationEvent
	closed     bool
	flushCount int64
	errorCount int64
}

// NewVerificationWriter creates a writer that flushes on size or interval.
func NewVerificationWriter(client *Client, batchSize int, flushInterval time.Duration) *VerificationWriter {
	if batchSize <= 0 {
		batchSize = 500
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &VerificationWriter{
		client:        client,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		buf:           make([]bus.VerificationEvent, 0, batchSize),
	}
}

// Write buffers a verification event for the next flush.
func (w *VerificationWriter) Write(_ context.Context, event bus.VerificationEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	w.buf = append(w.buf, event)
	return nil
}

// Start begins the background flush loop. Blocks until ctx is cancelled.
func (w *VerificationWriter) Start(ctx context.Context) {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	log.Info().
		Int("batch_size", w.batchSize).
		Dur("flush_interval", w.flushInterval).
		Msg("verification log writer started")

	for {
		select {
		case <-ctx.Done():
			// Final flush on shutdown.
			if err := w.Flush(context.Background()); err != nil {
				log.Error().Err(err).Msg("final flush error on shutdown")
			}
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				log.Error().Err(err).Msg("periodic flush error")
			}
		}
	}
}

// Flush writes all buffered events to ClickHouse.
func (w *VerificationWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	events := w.buf
	w.buf = make([]bus.VerificationEvent, 0, w.batchSize)
	w.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	batch, err := w.client.Conn().PrepareBatch(ctx,
		"INSERT INTO verification_logs (event_id, trace_id, ts, asset, origin, destination, network, address, status, risk, threat_type, trust_score, response_ms, payload)")
	if err != nil {
		w.mu.Lock()
		w.errorCount++
		w.mu.Unlock()
		return fmt.Errorf("prepare verification batch: %w", err)
	}

	for _, e := range events {
		payload, merr := json.Marshal(e.Request)
		if merr != nil {
			payload = []byte("{}")
		}
		if err := batch.Append(
			e.EventID,
			e.TraceID,
			e.Timestamp,
			e.Request.Asset,
			e.Request.OriginVenue,
			e.Request.Destination,
			e.Request.Network,
			e.Request.Address,
			string(e.Verdict.Status),
			string(e.Verdict.Risk),
			e.Verdict.ThreatType,
			e.TrustScore,
			e.ResponseTimeMs,
			string(payload),
		); err != nil {
			return fmt.Errorf("append verification row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		w.mu.Lock()
		w.errorCount++
		w.mu.Unlock()
		return fmt.Errorf("send verification batch: %w", err)
	}

	w.mu.Lock()
	w.flushCount++
	w.mu.Unlock()

	log.Debug().Int("events", len(events)).Msg("verification batch flushed")
	return nil
}

// Close marks the writer closed and performs a final flush.
func (w *VerificationWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Flush(ctx)
}
