package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ghostink/svc/util"
)

type HealthResponse struct {
	Status string `json:"status"`
}
type ReadyResponse struct {
	Ready    bool   `json:"ready"`
	Degraded bool   `json:"degraded"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Health is a liveness probe; it never touches the backend.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready fails only when the backend is unreachable. Redis is an optional
// accelerator, so losing it marks the server degraded.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	resp := ReadyResponse{
		Ready:    true,
		Database: "up",
		Cache:    "unavailable",
	}
	if err := s.paste.StoreHealth(ctx); err != nil {
		util.Error().Err(err).Msg("database health check failed")
		resp.Ready = false
		resp.Database = "down"
	}
	if s.paste.CacheConfigured() {
		resp.Cache = "up"
		if err := s.paste.CacheHealth(ctx); err != nil {
			util.Warn().Err(err).Msg("cache health check failed")
			resp.Degraded = true
			resp.Cache = "down"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(resp)
}
