package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/safesentinel/sentinel/internal/connectors/cmc"
)

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// TokenSearchResponse is the answer for GET /search-token/{symbol}.
type TokenSearchResponse struct {
	*cmc.TokenMetadata
	TrustScore float64 `json:"trust_score"`
}

func (s *Server) handleSearchToken(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if s.deps.Market == nil {
		writeError(w, http.StatusServiceUnavailable, "market data source not configured")
		return
	}

	snap, meta, err := s.deps.Market.Market(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TokenSearchResponse{
		TokenMetadata: meta,
		TrustScore:    s.deps.Trust.Compute(snap, nil),
	})
}

// FindRequest is the body of POST /find.
type FindRequest struct {
	Asset   string `json:"asset"`
	Network string `json:"network"`
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req FindRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if s.deps.Routes == nil {
		writeError(w, http.StatusServiceUnavailable, "route discovery not configured")
		return
	}

	plan, err := s.deps.Routes.FindBestRoute(r.Context(), req.Asset, req.Network)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// SimulateRequest is the body of POST /simulate. Value is hex-encoded wei,
// "0x0" for token transfers.
type SimulateRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Network string `json:"network"`
	Value   string `json:"value"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if s.deps.Simulator == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation not configured")
		return
	}

	result, err := s.deps.Simulator.SimulateTransfer(r.Context(), req.From, req.To, req.Network, req.Value)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// IntentRequest is the body of POST /extract.
type IntentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	intent, err := s.deps.Humanizer.ExtractIntent(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not understand the request")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
