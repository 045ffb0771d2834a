// Package domain contains core domain types for the AutoStream sales assistant.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session holds the per-thread conversation state.
type Session struct {
	// ID identifies this session instance. A thread that is evicted and
	// reused starts a session with a new ID.
	ID            string
	ThreadID      string
	Messages      []Message
	CurrentIntent Intent
	// Lead is nil until lead collection has been entered at least once.
	Lead         *LeadData
	Stage        LeadStage
	LeadCaptured bool
	TurnCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession returns a session with empty defaults for an unseen thread.
func NewSession(threadID string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Stage:     StageNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsCollectingLead reports whether the lead sub-dialogue is active.
// It is derived from Stage so the two can never disagree.
func (s *Session) IsCollectingLead() bool {
	return s.Stage.Collecting()
}

// Append adds a message to the history.
func (s *Session) Append(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, CreatedAt: at})
}

// LastUserMessage returns the most recent user message content.
func (s *Session) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// RecentMessages returns the last n messages from history.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	if s.Lead != nil {
		lead := *s.Lead
		c.Lead = &lead
	}
	return &c
}
