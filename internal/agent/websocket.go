package agent

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/shweta09111/autostream-agent/internal/identity"
)

const wsWriteTimeout = 10 * time.Second

// HandleWebSocket serves GET /ws/chat. Every inbound {"message": "..."}
// frame gets one reply frame shaped like the /api/chat response.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	threadID := identity.ThreadIDFromContext(r.Context())
	clientIP := identity.IPFromRequest(r)
	slog.Info("WebSocket connection request", "thread_id", threadID, "ip", clientIP)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "thread_id", threadID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "thread_id", threadID)
		}
	}()

	h.conns.Register(threadID, ws)
	defer h.conns.Unregister(threadID, ws)

	ctx := r.Context()
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "thread_id", threadID)
			} else {
				slog.Debug("WebSocket read ended", "error", err, "thread_id", threadID)
			}
			return
		}

		if msg.Type == "ping" {
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				return
			}
			continue
		}

		if !h.rateLimiter.Allow(clientIP) {
			if err := h.writeJSON(ctx, ws, map[string]string{"error": "rate limit exceeded"}); err != nil {
				return
			}
			continue
		}

		res, err := h.svc.Chat(ctx, ChannelWebSocket, threadID, msg.Message)
		if err != nil {
			status, text := errorStatus(err)
			if status == http.StatusInternalServerError {
				slog.Error("Chat turn failed", "thread_id", threadID, "error", err)
			}
			if err := h.writeJSON(ctx, ws, map[string]string{"error": text}); err != nil {
				return
			}
			continue
		}

		if err := h.writeJSON(ctx, ws, res); err != nil {
			slog.Debug("Failed to write reply", "error", err, "thread_id", threadID)
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}
