// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

// Repository defines the interface for persisting conversation sessions and leads.
type Repository interface {
	// GetSession retrieves the session for a thread. Returns nil, nil if absent.
	GetSession(ctx context.Context, threadID string) (*domain.Session, error)

	// UpsertSession creates or replaces the session for its thread.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// DeleteSession removes the session for a thread.
	DeleteSession(ctx context.Context, threadID string) error

	// GetExpiredSessions returns thread IDs whose sessions have been idle longer than ttl.
	GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error)

	// SaveLead records a captured lead. It reports false, with no error, when
	// the lead's session already has one.
	SaveLead(ctx context.Context, lead *domain.Lead) (bool, error)

	// ListLeads returns captured leads, oldest first.
	ListLeads(ctx context.Context) ([]*domain.Lead, error)

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases storage resources.
	Close() error
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)
