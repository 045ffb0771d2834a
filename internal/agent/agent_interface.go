package agent

import (
	"context"

	"github.com/shweta09111/autostream-agent/internal/conversation"
	"github.com/shweta09111/autostream-agent/internal/domain"
)

// Chatter runs conversation turns and exposes stored sessions.
type Chatter interface {
	// HandleTurn processes one user message for a thread.
	HandleTurn(ctx context.Context, threadID, message string) (*conversation.TurnResult, error)

	// Session returns the stored session or domain.ErrSessionNotFound.
	Session(ctx context.Context, threadID string) (*domain.Session, error)
}

// LeadLister lists captured leads.
type LeadLister interface {
	ListLeads(ctx context.Context) ([]*domain.Lead, error)
}

// Ensure the controller implements Chatter.
var _ Chatter = (*conversation.Controller)(nil)
