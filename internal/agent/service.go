package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/shweta09111/autostream-agent/internal/conversation"
	"github.com/shweta09111/autostream-agent/internal/domain"
)

// Service runs chat turns and records them in the conversation log.
type Service struct {
	chat Chatter
	log  ConversationLogger
}

// NewService creates a service. A nil log disables conversation logging.
func NewService(chat Chatter, log ConversationLogger) *Service {
	if log == nil {
		log = noopConversationLogger{}
	}
	return &Service{chat: chat, log: log}
}

// Chat processes a user message received on channel.
func (s *Service) Chat(ctx context.Context, channel, threadID, message string) (*conversation.TurnResult, error) {
	start := time.Now()
	res, err := s.chat.HandleTurn(ctx, threadID, message)
	if err != nil {
		s.log.Log(ConversationLogEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			ThreadID:  threadID,
			Channel:   channel,
			Direction: "inbound",
			EventType: "chat_turn_failed",
			Content:   message,
			Meta:      map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	s.log.Log(ConversationLogEvent{
		Timestamp: start.UTC().Format(time.RFC3339Nano),
		ThreadID:  res.ThreadID,
		Channel:   channel,
		Direction: "inbound",
		EventType: "chat_user_message",
		Content:   message,
	})
	s.log.Log(ConversationLogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ThreadID:  res.ThreadID,
		Channel:   channel,
		Direction: "outbound",
		EventType: "chat_assistant_message",
		Content:   res.Reply,
		Meta: map[string]any{
			"intent":         res.Intent,
			"awaiting_field": res.AwaitingField,
			"lead_captured":  res.LeadCaptured,
			"turn":           res.Turn,
			"duration_ms":    time.Since(start).Milliseconds(),
		},
	})
	return res, nil
}

// Session returns the stored session for threadID.
func (s *Service) Session(ctx context.Context, threadID string) (*domain.Session, error) {
	return s.chat.Session(ctx, threadID)
}

// Close flushes the conversation log.
func (s *Service) Close() {
	if err := s.log.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
}
