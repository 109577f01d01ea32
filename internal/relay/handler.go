package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mazleon/portfolio-website/internal/api"
	"github.com/mazleon/portfolio-website/internal/identity"
	"github.com/mazleon/portfolio-website/internal/metrics"
)

const defaultMaxRequestBodySize = 64 << 10

// Response is the relay success body.
type Response struct {
	Content string `json:"content"`
}

// Handler serves the chat relay endpoint.
type Handler struct {
	svc         *Service
	guard       *QuotaGuard
	maxBodySize int64
}

// NewHandler creates a Handler. guard may be nil to leave quota enforcement to the client.
func NewHandler(svc *Service, guard *QuotaGuard, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{svc: svc, guard: guard, maxBodySize: maxBodySize}
}

// RegisterRoutes registers the relay under both its API path and the legacy
// serverless function path.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/api/chat", h.HandleChat)
	r.HandleFunc("/.netlify/functions/chat", h.HandleChat)
}

// HandleChat relays one visitor message to the model.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = io.WriteString(w, "Method Not Allowed")
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		sessionID = identity.SessionIDFromRequest(r)
	}

	if !h.svc.KeyConfigured() {
		slog.Error("Chat relay called without provider credential", "request_id", reqID)
		metrics.RelayRequestsTotal.WithLabelValues("http", metrics.OutcomeMissingKey).Inc()
		api.Error(w, http.StatusInternalServerError, ErrKeyNotConfigured.Error())
		return
	}

	var req Request
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode chat request", "error", err, "request_id", reqID)
		metrics.RelayRequestsTotal.WithLabelValues("http", metrics.OutcomeBadRequest).Inc()
		api.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	ctx := r.Context()
	if h.guard != nil && sessionID != "" {
		sess, release, err := h.guard.Acquire(ctx, sessionID)
		if err != nil {
			h.writeError(w, err, reqID, sessionID)
			return
		}
		defer release()

		content, err := h.svc.Reply(ctx, req)
		if err != nil {
			h.writeError(w, err, reqID, sessionID)
			return
		}
		h.guard.Record(ctx, sess, req.Message, content)
		slog.Info("Chat reply sent", "request_id", reqID, "session_id", sessionID, "remaining", sess.Remaining())
		metrics.RelayRequestsTotal.WithLabelValues("http", metrics.OutcomeSuccess).Inc()
		api.JSON(w, http.StatusOK, Response{Content: content})
		return
	}

	content, err := h.svc.Reply(ctx, req)
	if err != nil {
		h.writeError(w, err, reqID, sessionID)
		return
	}
	slog.Info("Chat reply sent", "request_id", reqID, "history", len(req.History))
	metrics.RelayRequestsTotal.WithLabelValues("http", metrics.OutcomeSuccess).Inc()
	api.JSON(w, http.StatusOK, Response{Content: content})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, reqID, sessionID string) {
	status, message, outcome := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("Chat relay failed", "error", err, "request_id", reqID, "session_id", sessionID)
	} else {
		slog.Info("Chat relay refused", "reason", err, "request_id", reqID, "session_id", sessionID)
	}
	metrics.RelayRequestsTotal.WithLabelValues("http", outcome).Inc()
	if outcome == metrics.OutcomeQuota {
		metrics.QuotaRejectionsTotal.Inc()
	}
	api.Error(w, status, message)
}

// classify maps a relay error to its status, public message and metric label.
// Provider internals never reach the response body.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrKeyNotConfigured):
		return http.StatusInternalServerError, ErrKeyNotConfigured.Error(), metrics.OutcomeMissingKey
	case errors.Is(err, ErrQuotaExhausted):
		return http.StatusTooManyRequests, "Session limit reached", metrics.OutcomeQuota
	case errors.Is(err, ErrInFlight):
		return http.StatusConflict, "Request already in progress", metrics.OutcomeBusy
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), metrics.OutcomeBadRequest
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), metrics.OutcomeProviderError
	}
}
