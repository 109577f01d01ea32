package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/identity"
	"github.com/mazleon/portfolio-website/internal/metrics"
)

// Frame types exchanged on the chat socket.
const (
	FrameChat  = "chat"
	FramePing  = "ping"
	FramePong  = "pong"
	FrameReply = "reply"
	FrameError = "error"
)

// Frame is a websocket message in either direction.
type Frame struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	History   []chat.Turn `json:"history,omitempty"`
	Content   string      `json:"content,omitempty"`
	Error     string      `json:"error,omitempty"`
	Remaining *int        `json:"remaining,omitempty"`
}

// WebSocketHandler serves the chat relay over a websocket.
type WebSocketHandler struct {
	svc           *Service
	guard         *QuotaGuard
	cm            *ConnManager
	readLimit      int64
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a new WebSocket handler. guard may be nil.
// allowedOrigins is the same list the CORS middleware uses.
func NewWebSocketHandler(svc *Service, guard *QuotaGuard, cm *ConnManager, readLimit int64, allowedOrigins []string, isDev bool) *WebSocketHandler {
	if readLimit <= 0 {
		readLimit = defaultMaxRequestBodySize
	}
	return &WebSocketHandler{
		svc:            svc,
		guard:          guard,
		cm:             cm,
		readLimit:      readLimit,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// RegisterRoutes registers the socket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.ServeHTTP)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromRequest(r)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	slog.Info("Chat socket request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()
	ws.SetReadLimit(h.readLimit)

	h.cm.Register(sessionID, ws)
	defer h.cm.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, sessionID)
	slog.Info("Chat socket closed", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	var busy atomic.Bool
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var in Frame
		if err := json.Unmarshal(data, &in); err != nil {
			h.write(ctx, ws, Frame{Type: FrameError, Error: "Internal Server Error"})
			continue
		}

		switch in.Type {
		case FramePing:
			h.write(ctx, ws, Frame{Type: FramePong})
		case FrameChat:
			if !busy.CompareAndSwap(false, true) {
				h.write(ctx, ws, Frame{Type: FrameError, Error: "Request already in progress"})
				continue
			}
			go func(in Frame) {
				defer busy.Store(false)
				h.write(ctx, ws, h.handleChat(ctx, sessionID, in))
			}(in)
		default:
			h.write(ctx, ws, Frame{Type: FrameError, Error: "unknown frame type"})
		}
	}
}

func (h *WebSocketHandler) handleChat(ctx context.Context, sessionID string, in Frame) Frame {
	req := Request{Message: in.Message, History: in.History}

	if h.guard == nil {
		content, err := h.svc.Reply(ctx, req)
		if err != nil {
			return h.errorFrame(err, sessionID)
		}
		metrics.RelayRequestsTotal.WithLabelValues("websocket", metrics.OutcomeSuccess).Inc()
		return Frame{Type: FrameReply, Content: content}
	}

	if !h.svc.KeyConfigured() {
		return h.errorFrame(ErrKeyNotConfigured, sessionID)
	}
	sess, release, err := h.guard.Acquire(ctx, sessionID)
	if err != nil {
		return h.errorFrame(err, sessionID)
	}
	defer release()

	content, err := h.svc.Reply(ctx, req)
	if err != nil {
		return h.errorFrame(err, sessionID)
	}
	h.guard.Record(ctx, sess, req.Message, content)
	metrics.RelayRequestsTotal.WithLabelValues("websocket", metrics.OutcomeSuccess).Inc()
	remaining := sess.Remaining()
	return Frame{Type: FrameReply, Content: content, Remaining: &remaining}
}

func (h *WebSocketHandler) errorFrame(err error, sessionID string) Frame {
	_, message, outcome := classify(err)
	slog.Warn("Chat socket request failed", "error", err, "session_id", sessionID)
	metrics.RelayRequestsTotal.WithLabelValues("websocket", outcome).Inc()
	if outcome == metrics.OutcomeQuota {
		metrics.QuotaRejectionsTotal.Inc()
	}
	return Frame{Type: FrameError, Error: message}
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, f Frame) {
	if err := wsjson.Write(ctx, ws, f); err != nil && ctx.Err() == nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}
