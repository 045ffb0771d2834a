package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shweta09111/autostream-agent/internal/api"
	"github.com/shweta09111/autostream-agent/internal/config"
	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/shweta09111/autostream-agent/internal/identity"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Handler serves the chat API.
type Handler struct {
	svc           *Service
	leads         LeadLister
	rateLimiter   *RateLimiter
	conns         *ConnectionManager
	maxBodySize   int64
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a chat handler. cfg may be nil, in which case defaults
// apply.
func NewHandler(svc *Service, leads LeadLister, conns *ConnectionManager, cfg *config.Config) *Handler {
	rateLimitRequests := 30
	rateLimitWindow := time.Minute
	allowedOrigin := "*"
	isDev := true

	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
		if cfg.FrontendURL != "" {
			allowedOrigin = cfg.FrontendURL
		}
		isDev = cfg.IsDevelopment()
	}
	if conns == nil {
		conns = NewConnectionManager()
	}

	return &Handler{
		svc:           svc,
		leads:         leads,
		rateLimiter:   NewRateLimiter(rateLimitRequests, rateLimitWindow),
		conns:         conns,
		maxBodySize:   defaultMaxRequestBodySize,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// RegisterRoutes registers chat routes. identity.Middleware must run first.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Post("/threads", h.HandleNewThread)
		r.Get("/threads/{threadID}", h.HandleGetThread)
		r.Get("/leads", h.HandleListLeads)
	})
	r.Get("/ws/chat", h.HandleWebSocket)
}

// Connections returns the live WebSocket registry.
func (h *Handler) Connections() *ConnectionManager {
	return h.conns
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	h.svc.Close()
}

// HandleChat handles POST /api/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(identity.IPFromRequest(r)) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	threadID := identity.SanitizeThreadID(req.ThreadID)
	if threadID == "" {
		threadID = identity.ThreadIDFromContext(r.Context())
	}

	slog.Info("Chat request",
		"thread_id", threadID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	res, err := h.svc.Chat(r.Context(), ChannelHTTP, threadID, req.Message)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("Chat turn failed", "thread_id", threadID, "error", err)
		}
		api.Error(w, status, msg)
		return
	}

	w.Header().Set(identity.ThreadHeaderName, res.ThreadID)
	api.JSON(w, http.StatusOK, res)
}

// HandleNewThread handles POST /api/threads: it starts a new conversation.
func (h *Handler) HandleNewThread(w http.ResponseWriter, _ *http.Request) {
	threadID := identity.NewThreadID()
	w.Header().Set(identity.ThreadHeaderName, threadID)
	api.JSON(w, http.StatusCreated, ThreadResponse{ThreadID: threadID})
}

// HandleGetThread handles GET /api/threads/{threadID}.
func (h *Handler) HandleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := identity.SanitizeThreadID(chi.URLParam(r, "threadID"))
	if threadID == "" {
		api.Error(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	s, err := h.svc.Session(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			api.Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("Failed to load session", "thread_id", threadID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	api.JSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleListLeads handles GET /api/leads.
func (h *Handler) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.ListLeads(r.Context())
	if err != nil {
		slog.Error("Failed to list leads", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []*domain.Lead{}
	}
	api.JSON(w, http.StatusOK, leads)
}

// errorStatus maps a turn error to an HTTP status and public message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest, "message is required"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
