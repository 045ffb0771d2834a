package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// lockedDeleteStore reports a lock conflict on every delete.
type lockedDeleteStore struct {
	*MemoryStore
	deletes atomic.Int32
}

func (l *lockedDeleteStore) DeleteSession(context.Context, string) error {
	l.deletes.Add(1)
	return errors.New("delete session: database is locked")
}

func TestCleanupExpiredSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	old := sampleSession("old")
	old.UpdatedAt = time.Now().Add(-48 * time.Hour)
	fresh := sampleSession("fresh")
	fresh.UpdatedAt = time.Now()
	_ = m.UpsertSession(ctx, old)
	_ = m.UpsertSession(ctx, fresh)

	var cleaned []string
	n := CleanupExpiredSessions(ctx, m, 24*time.Hour, func(threadID string) {
		cleaned = append(cleaned, threadID)
	})
	if n != 1 {
		t.Fatalf("expected 1 cleaned session, got %d", n)
	}
	if len(cleaned) != 1 || cleaned[0] != "old" {
		t.Fatalf("unexpected cleanup callbacks: %v", cleaned)
	}
	if got, _ := m.GetSession(ctx, "old"); got != nil {
		t.Error("expected old session to be removed")
	}
	if got, _ := m.GetSession(ctx, "fresh"); got == nil {
		t.Error("expected fresh session to remain")
	}
}

func TestCleanupExpiredSessionsDeletesOncePerSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &lockedDeleteStore{MemoryStore: NewMemory()}

	old := sampleSession("old")
	old.UpdatedAt = time.Now().Add(-48 * time.Hour)
	_ = repo.UpsertSession(ctx, old)

	called := false
	n := CleanupExpiredSessions(ctx, repo, 24*time.Hour, func(string) { called = true })
	if n != 0 || called {
		t.Fatalf("expected no cleanup, got n=%d called=%v", n, called)
	}
	if got := repo.deletes.Load(); got != 1 {
		t.Fatalf("expected 1 delete attempt, got %d", got)
	}
}

func TestStartTTLWorkerDisabled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Must return without starting a goroutine that panics on a zero interval.
	StartTTLWorker(ctx, NewMemory(), 0, 0, nil)
}
