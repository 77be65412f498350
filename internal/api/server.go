package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/audit"
	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/cache"
	"github.com/safesentinel/sentinel/internal/connectors/cmc"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
	"github.com/safesentinel/sentinel/internal/humanizer"
	"github.com/safesentinel/sentinel/internal/netcompat"
	"github.com/safesentinel/sentinel/internal/observability"
	"github.com/safesentinel/sentinel/internal/security"
	"github.com/safesentinel/sentinel/internal/simulator"
	"github.com/safesentinel/sentinel/internal/sourcing"
	"github.com/safesentinel/sentinel/internal/trust"
)

// ---------------------------------------------------------------------------
// HTTP API server (the Command Center surface)
// ---------------------------------------------------------------------------

// Upstream signal sources. Every one of them is optional: a nil field means
// the signal is absent and the corresponding pipeline check degrades to its
// fail-open behavior.

// NetworkLister serves exchange deposit/withdraw network lists.
type NetworkLister interface {
	SupportedNetworks(ctx context.Context, asset string) ([]netcompat.NetworkSupport, error)
}

// SecurityAuditor serves contract security reports.
type SecurityAuditor interface {
	CheckToken(ctx context.Context, address, network string) (*security.Report, error)
}

// MarketProvider serves token metadata and market stats.
type MarketProvider interface {
	Market(ctx context.Context, symbol string) (*trust.MarketSnapshot, *cmc.TokenMetadata, error)
}

// AddressVerifier resolves whether a destination is a contract or an EOA.
type AddressVerifier interface {
	Verify(ctx context.Context, address, network string) (*gatekeeper.OnChainInfo, error)
}

// Explainer turns verdicts into human language and text into intents.
type Explainer interface {
	HumanizeRisk(ctx context.Context, rc humanizer.RiskContext) string
	ExtractIntent(ctx context.Context, text string) (*humanizer.Intent, error)
}

// RouteFinder discovers how to obtain an asset on a network.
type RouteFinder interface {
	FindBestRoute(ctx context.Context, token, targetNetwork string) (*sourcing.RoutePlan, error)
}

// TransferSimulator dry-runs a transfer before any funds move.
type TransferSimulator interface {
	SimulateTransfer(ctx context.Context, from, to, network, value string) (*simulator.Result, error)
}

// EventSink persists verification events (ClickHouse writer).
type EventSink interface {
	Write(ctx context.Context, event bus.VerificationEvent) error
}

// Deps bundles everything the server orchestrates. Gatekeeper, Trust and
// Humanizer are required; the rest may be nil.
type Deps struct {
	Gatekeeper *gatekeeper.Gatekeeper
	Trust      *trust.Calculator
	Humanizer  Explainer

	Networks  NetworkLister
	Auditor   SecurityAuditor
	Market    MarketProvider
	OnChain   AddressVerifier
	Routes    RouteFinder
	Simulator TransferSimulator

	Trail   *audit.Trail
	Sink    EventSink
	Cache   *cache.RedisCache
	Metrics *observability.Registry
	Health  *observability.HealthMonitor
}

// Server is the HTTP face of the verification pipeline.
type Server struct {
	deps          Deps
	instanceID    string
	schemaVersion string
	broadcaster   *Broadcaster
	httpServer    *http.Server
}

// NewServer wires the HTTP server. listenAddr is the bind address.
func NewServer(listenAddr, instanceID, schemaVersion string, deps Deps) *Server {
	s := &Server{
		deps:          deps,
		instanceID:    instanceID,
		schemaVersion: schemaVersion,
		broadcaster:   NewBroadcaster(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.HandleFunc("GET /search-token/{symbol}", s.handleSearchToken)
	mux.HandleFunc("POST /find", s.handleFind)
	mux.HandleFunc("POST /simulate", s.handleSimulate)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /recent", s.handleRecent)
	mux.HandleFunc("GET /ws", s.broadcaster.Handler())
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", observability.NewPrometheusExporter(deps.Metrics))
	}

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("api: server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// withCORS mirrors the permissive CORS policy of the frontend deployment.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "SafeSentinel Command Center API Operational",
		"instance": s.instanceID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"ts":     time.Now().Format(time.RFC3339),
		})
		return
	}

	health := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if health.Status == observability.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// handleRecent exposes the in-memory audit buffer.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Trail == nil {
		writeJSON(w, http.StatusOK, []bus.VerificationEvent{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Trail.Recent())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("api: response encode failed")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
