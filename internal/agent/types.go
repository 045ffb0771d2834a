// Package agent exposes the sales assistant over HTTP and WebSocket.
package agent

import (
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// ThreadResponse is returned by POST /api/threads.
type ThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// SessionResponse is the public snapshot of a conversation.
type SessionResponse struct {
	ThreadID       string           `json:"thread_id"`
	SessionID      string           `json:"session_id"`
	Messages       []domain.Message `json:"messages"`
	Intent         domain.Intent    `json:"intent"`
	CollectingLead bool             `json:"collecting_lead"`
	AwaitingField  domain.LeadStage `json:"awaiting_field"`
	Lead           *domain.LeadData `json:"lead,omitempty"`
	LeadCaptured   bool             `json:"lead_captured"`
	Turn           int              `json:"turn"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func newSessionResponse(s *domain.Session) *SessionResponse {
	msgs := s.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return &SessionResponse{
		ThreadID:       s.ThreadID,
		SessionID:      s.ID,
		Messages:       msgs,
		Intent:         s.CurrentIntent,
		CollectingLead: s.IsCollectingLead(),
		AwaitingField:  s.Stage,
		Lead:           s.Lead,
		LeadCaptured:   s.LeadCaptured,
		Turn:           s.TurnCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// wsMessage is an inbound WebSocket frame.
type wsMessage struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// Conversation log channels.
const (
	ChannelHTTP      = "chat_http"
	ChannelWebSocket = "chat_ws"
)
