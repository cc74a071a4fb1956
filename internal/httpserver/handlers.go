package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dadosbr/agregador/internal/health"
	"github.com/dadosbr/agregador/internal/types"
)

// SourceInfo is the public projection of a registered source.
type SourceInfo struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	TokenRequired bool     `json:"token_required"`
	RateLimit     int      `json:"rate_limit_per_minute"`
	Categories    []string `json:"categories,omitempty"`
}

type errorResponse struct {
	Error  string               `json:"error"`
	Type   string               `json:"type,omitempty"`
	Ledger []types.SourceStatus `json:"ledger,omitempty"`
}

type healthResponse struct {
	Status        string          `json:"status"`
	Sources       int             `json:"sources"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Probes        []health.Status `json:"probes,omitempty"`
}

// handleSearch serves the search API. GET passes the query through URL
// parameters; POST takes a SearchRequest body.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	switch r.Method {
	case http.MethodGet:
		req = searchRequestFromQuery(r)
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required", "")
		return
	}

	resp, err := s.aggregator.Search(r.Context(), req)
	if err != nil {
		var aggErr *types.AggregateError
		if errors.As(err, &aggErr) {
			status := http.StatusBadGateway
			if aggErr.Type == types.ErrorTypeNoSourceMatched {
				status = http.StatusNotFound
			}
			s.writeJSON(w, status, errorResponse{
				Error:  aggErr.Error(),
				Type:   string(aggErr.Type),
				Ledger: aggErr.Ledger,
			})
			return
		}
		s.logger.Printf("search error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleSources lists the registered sources.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	descriptors := s.registry.All()
	sources := make([]SourceInfo, 0, len(descriptors))
	for _, desc := range descriptors {
		sources = append(sources, SourceInfo{
			Key:           desc.Key,
			Name:          desc.Name,
			Enabled:       desc.Enabled,
			TokenRequired: desc.TokenRequired,
			RateLimit:     desc.RateLimit,
			Categories:    desc.Categories,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// handleHealth is the liveness probe. With ?probe=true it also checks
// each upstream source's reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Sources:       len(s.registry.All()),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if r.URL.Query().Get("probe") == "true" {
		resp.Probes = s.checker.CheckAll(r.Context())
		for _, probe := range resp.Probes {
			if !probe.Healthy && probe.Reason != "disabled" {
				resp.Status = "degraded"
				break
			}
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func searchRequestFromQuery(r *http.Request) types.SearchRequest {
	q := r.URL.Query()
	req := types.SearchRequest{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}
	if req.Query == "" {
		req.Query = q.Get("query")
	}
	if raw := q.Get("sources"); raw != "" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				req.Sources = append(req.Sources, key)
			}
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		req.Limit = limit
	}
	return req
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, errorType string) {
	s.writeJSON(w, status, errorResponse{Error: message, Type: errorType})
}
