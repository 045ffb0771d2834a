package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSession(threadID string) *domain.Session {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := domain.NewSession(threadID, at)
	s.Append(domain.RoleUser, "I want to sign up", at)
	s.Append(domain.RoleAssistant, "That's great! What's your name?", at.Add(time.Second))
	s.CurrentIntent = domain.IntentHighIntentLead
	s.Lead = &domain.LeadData{Name: "Alice"}
	s.Stage = domain.StageEmail
	s.TurnCount = 2
	return s
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	want := sampleSession("thread-1")
	if err := s.UpsertSession(ctx, want); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "thread-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if !reflect.DeepEqual(got.Messages, want.Messages) {
		t.Errorf("messages mismatch:\n got %+v\nwant %+v", got.Messages, want.Messages)
	}
	if !reflect.DeepEqual(got.Lead, want.Lead) {
		t.Errorf("lead mismatch: got %+v want %+v", got.Lead, want.Lead)
	}
	if got.ID == "" || got.ID != want.ID {
		t.Errorf("session id mismatch: got %q want %q", got.ID, want.ID)
	}
	if got.Stage != want.Stage {
		t.Errorf("stage mismatch: got %q want %q", got.Stage, want.Stage)
	}
	if got.TurnCount != 2 || got.CurrentIntent != domain.IntentHighIntentLead {
		t.Errorf("unexpected session fields: %+v", got)
	}
	if !got.IsCollectingLead() {
		t.Error("expected collecting lead after reload")
	}
}

func TestSQLiteSessionWithoutLead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := domain.NewSession("fresh", time.Now())
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}
	got, err := s.GetSession(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Lead != nil {
		t.Errorf("expected nil lead, got %+v", got.Lead)
	}
	if len(got.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(got.Messages))
	}
}

func TestSQLiteGetMissingSession(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	got, err := s.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session, got %+v", got)
	}
}

func TestSQLiteUpsertOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := sampleSession("thread-2")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}
	sess.Lead.Email = "alice@example.com"
	sess.Stage = domain.StagePlatform
	sess.TurnCount = 3
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("second UpsertSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "thread-2")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Lead.Email != "alice@example.com" || got.Stage != domain.StagePlatform || got.TurnCount != 3 {
		t.Fatalf("update not applied: %+v lead=%+v", got, got.Lead)
	}
}

func TestSQLiteExpiredSessionsAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	old := sampleSession("old")
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	recent := sampleSession("recent")
	recent.UpdatedAt = time.Now()
	for _, sess := range []*domain.Session{old, recent} {
		if err := s.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("UpsertSession failed: %v", err)
		}
	}

	expired, err := s.GetExpiredSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GetExpiredSessions failed: %v", err)
	}
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("unexpected expired sessions: %v", expired)
	}

	if err := s.DeleteSession(ctx, "old"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err := s.GetSession(ctx, "old")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected session to be deleted")
	}
}

func TestSQLiteLeadsAreUniquePerSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	lead := &domain.Lead{
		ID:         "lead-1",
		SessionID:  "session-1",
		ThreadID:   "thread-1",
		Name:       "Alice",
		Email:      "alice@example.com",
		Platform:   "YouTube",
		CapturedAt: time.Now(),
	}
	saved, err := s.SaveLead(ctx, lead)
	if err != nil || !saved {
		t.Fatalf("SaveLead = %v, %v; want true, nil", saved, err)
	}
	dup := *lead
	dup.ID = "lead-2"
	saved, err = s.SaveLead(ctx, &dup)
	if err != nil || saved {
		t.Fatalf("duplicate SaveLead = %v, %v; want false, nil", saved, err)
	}

	// The same thread, reused after its session was evicted.
	next := *lead
	next.ID = "lead-3"
	next.SessionID = "session-2"
	next.Name = "Bob"
	saved, err = s.SaveLead(ctx, &next)
	if err != nil || !saved {
		t.Fatalf("SaveLead for reused thread = %v, %v; want true, nil", saved, err)
	}

	leads, err := s.ListLeads(ctx)
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].ID != "lead-1" || leads[0].SessionID != "session-1" || leads[0].Platform != "YouTube" {
		t.Fatalf("unexpected first lead: %+v", leads[0])
	}
	if leads[1].ID != "lead-3" || leads[1].ThreadID != "thread-1" || leads[1].Name != "Bob" {
		t.Fatalf("unexpected second lead: %+v", leads[1])
	}
}

func TestSQLitePing(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
