// Package watchdog periodically re-evaluates a fixed set of monitored
// wallet addresses against the verification pipeline. A wallet that was
// safe yesterday can land on the blacklist today; the watchdog catches
// that drift and raises alerts without waiting for the next manual check.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

// MonitoredWallet is one address under continuous watch.
type MonitoredWallet struct {
	Address string `json:"address" yaml:"address"`
	Network string `json:"network" yaml:"network"`
	Label   string `json:"label,omitempty" yaml:"label"`
}

// AddressVerifier resolves on-chain classification for an address. Nil
// results mean the network is not covered and the signal stays absent.
type AddressVerifier interface {
	Verify(ctx context.Context, address, network string) (*gatekeeper.OnChainInfo, error)
}

// Watchdog scans monitored wallets on a fixed interval.
type Watchdog struct {
	gatekeeper *gatekeeper.Gatekeeper
	verifier   AddressVerifier
	producer   bus.Producer
	wallets    []MonitoredWallet
	interval   time.Duration

	instanceID    string
	schemaVersion string

	scanCount  atomic.Int64
	alertCount atomic.Int64
}

// New builds a watchdog. verifier and producer may be nil; scans then run
// on registry signals only and alerts are logged instead of published.
func New(gk *gatekeeper.Gatekeeper, verifier AddressVerifier, producer bus.Producer, wallets []MonitoredWallet, interval time.Duration, instanceID, schemaVersion string) *Watchdog {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Watchdog{
		gatekeeper:    gk,
		verifier:      verifier,
		producer:      producer,
		wallets:       wallets,
		interval:      interval,
		instanceID:    instanceID,
		schemaVersion: schemaVersion,
	}
}

// Start runs the scan loop until the context is cancelled. The first scan
// fires immediately, subsequent scans on the configured interval.
func (w *Watchdog) Start(ctx context.Context) {
	log.Info().
		Int("wallets", len(w.wallets)).
		Dur("interval", w.interval).
		Msg("watchdog: monitoring started")

	w.Scan(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watchdog: monitoring stopped")
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan evaluates every monitored wallet once and returns the number of
// blocking verdicts found.
func (w *Watchdog) Scan(ctx context.Context) int {
	w.scanCount.Add(1)

	flagged := 0
	for _, wallet := range w.wallets {
		verdict := w.evaluate(ctx, wallet)
		if !verdict.Blocking() {
			continue
		}
		flagged++
		w.raiseAlert(ctx, wallet, verdict)
	}

	log.Debug().
		Int("wallets", len(w.wallets)).
		Int("flagged", flagged).
		Msg("watchdog: scan complete")
	return flagged
}

func (w *Watchdog) evaluate(ctx context.Context, wallet MonitoredWallet) gatekeeper.Verdict {
	var onChain *gatekeeper.OnChainInfo
	if w.verifier != nil {
		info, err := w.verifier.Verify(ctx, wallet.Address, wallet.Network)
		if err != nil {
			log.Warn().Err(err).
				Str("address", wallet.Address).
				Msg("watchdog: on-chain lookup failed")
		} else {
			onChain = info
		}
	}

	return w.gatekeeper.Evaluate(&gatekeeper.TransferRequest{
		Network: wallet.Network,
		Address: wallet.Address,
		OnChain: onChain,
	})
}

func (w *Watchdog) raiseAlert(ctx context.Context, wallet MonitoredWallet, verdict gatekeeper.Verdict) {
	w.alertCount.Add(1)

	log.Warn().
		Str("address", wallet.Address).
		Str("network", wallet.Network).
		Str("label", wallet.Label).
		Str("status", string(verdict.Status)).
		Str("risk", string(verdict.Risk)).
		Msg("watchdog: monitored wallet flagged")

	if w.producer == nil {
		return
	}

	event := bus.AlertEvent{
		BaseEvent:   bus.NewBaseEvent(w.instanceID, w.schemaVersion),
		Destination: wallet.Address,
		Network:     wallet.Network,
		Verdict:     verdict,
	}
	if err := w.producer.PublishJSON(ctx, bus.TopicAlerts, wallet.Address, event); err != nil {
		log.Error().Err(err).
			Str("address", wallet.Address).
			Msg("watchdog: alert publish failed")
	}
}

// Stats reports lifetime scan and alert counts.
func (w *Watchdog) Stats() (scans, alerts int64) {
	return w.scanCount.Load(), w.alertCount.Load()
}
