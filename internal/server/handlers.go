package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/version"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

// handleHealth reports whether the store answers. An unreachable store is a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "healthy",
		Service: "papertrader",
		Version: version.Version,
		Store:   s.container.StoreBackend,
	}
	status := http.StatusOK

	if err := s.container.PingStore(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Health check: store unreachable")
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, response)
}

// handleRoot sends logged-in users to their dashboard and everyone else to the login form
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
