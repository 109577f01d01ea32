// Package api provides shared HTTP helpers and the site info endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SiteConfig is what the front end needs to render the chat widget.
type SiteConfig struct {
	Name           string `json:"name"`
	FirstName      string `json:"firstName"`
	MaxUserTurns   int    `json:"maxUserTurns"`
	MaxInputLength int    `json:"maxInputLength"`
	QuotaEnforced  bool   `json:"quotaEnforced"`
}

// Handler serves the informational endpoints.
type Handler struct {
	site  SiteConfig
	store any
}

// NewHandler creates a Handler. store may be any session backend; it is pinged
// by the readiness endpoint when it implements Pinger.
func NewHandler(site SiteConfig, store any) *Handler {
	return &Handler{site: site, store: store}
}

// RegisterRoutes registers info routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)
	r.Get("/api/ready", h.Ready)
}

// GetConfig returns the widget configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.site)
}

// Ready reports whether the session store is reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.(Pinger)
	if !ok {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		Error(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
