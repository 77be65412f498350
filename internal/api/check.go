package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/connectors/cmc"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
	"github.com/safesentinel/sentinel/internal/humanizer"
	"github.com/safesentinel/sentinel/internal/netcompat"
	"github.com/safesentinel/sentinel/internal/security"
	"github.com/safesentinel/sentinel/internal/trust"
)

// CheckRequest is the body of POST /check.
type CheckRequest struct {
	Asset       string `json:"asset"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Network     string `json:"network"`
	Address     string `json:"address"`
}

// CheckResponse is the verification answer returned to the caller.
type CheckResponse struct {
	Status         gatekeeper.Status       `json:"status"`
	RiskLevel      gatekeeper.Risk         `json:"risk_level"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	ThreatType     string                  `json:"threat_type,omitempty"`
	TrustScore     float64                 `json:"trust_score"`
	OnChain        *gatekeeper.OnChainInfo `json:"on_chain,omitempty"`
	TokenIntel     *cmc.TokenMetadata      `json:"token_intel,omitempty"`
	TraceID        string                  `json:"trace_id"`
	ResponseTimeMs int64                   `json:"response_time_ms"`
}

const (
	titleSafe  = "Safe Path"
	titleAlert = "Security Alert"
)

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Asset) == "" || strings.TrimSpace(req.Address) == "" {
		writeError(w, http.StatusBadRequest, "asset and address are required")
		return
	}

	start := time.Now()
	ctx := r.Context()

	// Gather external signals. Every fetch is best-effort: a missing signal
	// degrades the corresponding rule to its fail-open behavior rather than
	// failing the verification.
	market, meta := s.fetchMarket(ctx, req.Asset)
	onChain := s.fetchOnChain(ctx, req.Address, req.Network)
	auditReport := s.fetchAudit(ctx, req.Address, req.Network)
	support := s.fetchNetworkSupport(ctx, req.Origin, req.Asset)

	transfer := &gatekeeper.TransferRequest{
		Asset:          req.Asset,
		OriginVenue:    req.Origin,
		Destination:    req.Destination,
		Network:        req.Network,
		Address:        req.Address,
		OnChain:        onChain,
		SecurityAudit:  auditReport,
		Market:         market,
		NetworkSupport: support,
	}

	verdict := s.deps.Gatekeeper.Evaluate(transfer)
	score := s.deps.Trust.Compute(market, auditReport)

	var volume float64
	if market != nil {
		volume = market.Volume24h
	}
	message := s.deps.Humanizer.HumanizeRisk(ctx, humanizer.RiskContext{
		Request:    *transfer,
		Verdict:    verdict,
		TrustScore: score,
		OnChain:    onChain,
		Volume24h:  volume,
	})

	elapsed := time.Since(start).Milliseconds()

	event := bus.VerificationEvent{
		BaseEvent:      bus.NewBaseEvent(s.instanceID, s.schemaVersion),
		Request:        *transfer,
		Verdict:        verdict,
		TrustScore:     score,
		ResponseTimeMs: elapsed,
	}
	s.recordEvent(ctx, event)

	title := titleSafe
	if verdict.Blocking() {
		title = titleAlert
	}

	resp := CheckResponse{
		Status:         verdict.Status,
		RiskLevel:      verdict.Risk,
		Title:          title,
		Message:        message,
		ThreatType:     verdict.ThreatType,
		TrustScore:     score,
		OnChain:        onChain,
		TokenIntel:     meta,
		TraceID:        event.TraceID,
		ResponseTimeMs: elapsed,
	}

	s.broadcaster.Broadcast(resp)
	s.observeCheck(verdict, req.Network, elapsed)
	writeJSON(w, http.StatusOK, resp)
}

// fetchMarket returns market stats and token metadata, preferring the cache.
func (s *Server) fetchMarket(ctx context.Context, asset string) (*trust.MarketSnapshot, *cmc.TokenMetadata) {
	if s.deps.Cache != nil {
		if snap, err := s.deps.Cache.GetMarket(ctx, asset); err == nil && snap != nil {
			return snap, nil
		}
	}
	if s.deps.Market == nil {
		return nil, nil
	}

	snap, meta, err := s.deps.Market.Market(ctx, asset)
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("api: market lookup failed")
		s.countConnectorError("cmc")
		return nil, nil
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SaveMarket(ctx, asset, snap); err != nil {
			log.Debug().Err(err).Msg("api: market cache write failed")
		}
	}
	return snap, meta
}

func (s *Server) fetchOnChain(ctx context.Context, address, network string) *gatekeeper.OnChainInfo {
	if s.deps.OnChain == nil {
		return nil
	}
	info, err := s.deps.OnChain.Verify(ctx, address, network)
	if err != nil {
		log.Warn().Err(err).Str("address", address).Msg("api: on-chain verification failed")
		s.countConnectorError("onchain")
		return nil
	}
	return info
}

func (s *Server) fetchAudit(ctx context.Context, address, network string) *security.Report {
	if s.deps.Cache != nil {
		if report, err := s.deps.Cache.GetAudit(ctx, network, address); err == nil && report != nil {
			return report
		}
	}
	if s.deps.Auditor == nil {
		return nil
	}

	report, err := s.deps.Auditor.CheckToken(ctx, address, network)
	if err != nil {
		log.Warn().Err(err).Str("address", address).Msg("api: security audit failed")
		s.countConnectorError("goplus")
		return nil
	}
	if report != nil && s.deps.Cache != nil {
		if err := s.deps.Cache.SaveAudit(ctx, network, address, report); err != nil {
			log.Debug().Err(err).Msg("api: audit cache write failed")
		}
	}
	return report
}

func (s *Server) fetchNetworkSupport(ctx context.Context, origin, asset string) netcompat.SupportSnapshot {
	if origin == "" {
		return nil
	}
	if s.deps.Cache != nil {
		if snap, err := s.deps.Cache.GetNetworkSupport(ctx, origin); err == nil && snap != nil {
			return snap
		}
	}
	if s.deps.Networks == nil {
		return nil
	}

	networks, err := s.deps.Networks.SupportedNetworks(ctx, asset)
	if err != nil {
		log.Warn().Err(err).Str("origin", origin).Msg("api: network support lookup failed")
		s.countConnectorError("binance")
		return nil
	}

	snap := netcompat.SupportSnapshot{origin: networks}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SaveNetworkSupport(ctx, origin, snap); err != nil {
			log.Debug().Err(err).Msg("api: support cache write failed")
		}
	}
	return snap
}

func (s *Server) recordEvent(ctx context.Context, event bus.VerificationEvent) {
	if s.deps.Trail != nil {
		s.deps.Trail.Record(ctx, event)
	}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.Write(ctx, event); err != nil {
			log.Error().Err(err).Str("trace_id", event.TraceID).Msg("api: event sink write failed")
		}
	}
}

func (s *Server) observeCheck(verdict gatekeeper.Verdict, network string, elapsedMs int64) {
	if s.deps.Metrics == nil {
		return
	}
	if c := s.deps.Metrics.GetCounter("sentinel_verifications_total"); c != nil {
		c.Inc()
	}
	if verdict.Blocking() {
		if c := s.deps.Metrics.GetCounter("sentinel_verifications_blocked_total"); c != nil {
			c.Inc()
		}
	}
	if h := s.deps.Metrics.GetHistogram("sentinel_verification_latency_ms"); h != nil {
		h.Observe(float64(elapsedMs))
	}
	if g := s.deps.Metrics.GetGauge("sentinel_ws_clients"); g != nil {
		g.Set(float64(s.broadcaster.ClientCount()))
	}
}

func (s *Server) countConnectorError(name string) {
	if s.deps.Metrics == nil {
		return
	}
	if c := s.deps.Metrics.GetCounter("sentinel_connector_errors_total"); c != nil {
		c.Inc()
	}
	log.Debug().Str("connector", name).Msg("api: connector error counted")
}
