// Package conversation runs one chat turn: it routes the message, drives lead
// collection or answer generation, and commits the session.
package conversation

import (
	"context"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

// Classifier labels a user message. It must always return a label.
type Classifier interface {
	Classify(ctx context.Context, text string) domain.Intent
}

// Retriever returns up to topK product snippets relevant to query.
type Retriever interface {
	Search(query string, topK int) []string
}

// Completer produces a model reply for a system prompt and history.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []domain.Message) (string, error)
}

// SessionStore loads and saves sessions. GetSession returns nil, nil for an
// unknown thread.
type SessionStore interface {
	GetSession(ctx context.Context, threadID string) (*domain.Session, error)
	UpsertSession(ctx context.Context, session *domain.Session) error
}
