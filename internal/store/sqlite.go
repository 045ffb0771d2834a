package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/shweta09111/autostream-agent/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetryAttempts = 3
	writeRetryBase     = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		thread_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		current_intent TEXT NOT NULL DEFAULT '',
		lead_json TEXT,
		awaiting_field TEXT NOT NULL DEFAULT '',
		lead_captured INTEGER NOT NULL DEFAULT 0,
		turn_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		thread_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		platform TEXT NOT NULL,
		captured_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_thread ON leads(thread_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetSession retrieves the session for a thread.
func (s *SQLiteStore) GetSession(ctx context.Context, threadID string) (*domain.Session, error) {
	query := `
		SELECT thread_id, session_id, messages_json, current_intent, lead_json, awaiting_field,
		       lead_captured, turn_count, created_at, updated_at
		FROM sessions WHERE thread_id = ?`

	row := s.db.QueryRowContext(ctx, query, threadID)

	var session domain.Session
	var messagesJSON, intent, stage string
	var leadJSON sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.ThreadID, &session.ID, &messagesJSON, &intent, &leadJSON, &stage,
		&session.LeadCaptured, &session.TurnCount, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for %s: %w", threadID, err)
	}
	if leadJSON.Valid {
		var lead domain.LeadData
		if err := json.Unmarshal([]byte(leadJSON.String), &lead); err != nil {
			return nil, fmt.Errorf("decode lead for %s: %w", threadID, err)
		}
		session.Lead = &lead
	}

	session.CurrentIntent = domain.Intent(intent)
	session.Stage = domain.LeadStage(stage)
	if !session.Stage.Valid() {
		return nil, fmt.Errorf("session %s has unknown awaiting_field %q", threadID, stage)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

// UpsertSession creates or replaces the session for its thread.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (
			thread_id, session_id, messages_json, current_intent, lead_json, awaiting_field,
			lead_captured, turn_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			session_id = excluded.session_id,
			messages_json = excluded.messages_json,
			current_intent = excluded.current_intent,
			lead_json = excluded.lead_json,
			awaiting_field = excluded.awaiting_field,
			lead_captured = excluded.lead_captured,
			turn_count = excluded.turn_count,
			updated_at = excluded.updated_at`

	messages := session.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	var leadJSON interface{}
	if session.Lead != nil {
		b, err := json.Marshal(session.Lead)
		if err != nil {
			return fmt.Errorf("encode lead: %w", err)
		}
		leadJSON = string(b)
	}

	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return shared.RetryOnConflict(ctx, "upsert session", writeRetryAttempts, writeRetryBase, func() error {
		_, err := s.db.ExecContext(ctx, query,
			session.ThreadID, session.ID, string(messagesJSON), string(session.CurrentIntent), leadJSON,
			string(session.Stage), session.LeadCaptured, session.TurnCount,
			session.CreatedAt.Unix(), updatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

// DeleteSession removes the session for a thread.
func (s *SQLiteStore) DeleteSession(ctx context.Context, threadID string) error {
	return shared.RetryOnConflict(ctx, "delete session", writeRetryAttempts, writeRetryBase, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE thread_id = ?`, threadID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// GetExpiredSessions returns thread IDs idle for longer than ttl.
func (s *SQLiteStore) GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl).Unix()
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close expired sessions rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}
	return ids, nil
}

// SaveLead records a captured lead, at most one per session.
func (s *SQLiteStore) SaveLead(ctx context.Context, lead *domain.Lead) (bool, error) {
	query := `
		INSERT INTO leads (id, session_id, thread_id, name, email, platform, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`

	var saved bool
	err := shared.RetryOnConflict(ctx, "save lead", writeRetryAttempts, writeRetryBase, func() error {
		result, err := s.db.ExecContext(ctx, query,
			lead.ID, lead.SessionID, lead.ThreadID, lead.Name, lead.Email, lead.Platform, lead.CapturedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("lead rows affected: %w", err)
		}
		saved = rows > 0
		return nil
	})
	return saved, err
}

// ListLeads returns captured leads, oldest first.
func (s *SQLiteStore) ListLeads(ctx context.Context) ([]*domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, thread_id, name, email, platform, captured_at
		FROM leads ORDER BY captured_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leads rows", "error", closeErr)
		}
	}()

	var leads []*domain.Lead
	for rows.Next() {
		var lead domain.Lead
		var capturedAt int64
		if err := rows.Scan(&lead.ID, &lead.SessionID, &lead.ThreadID, &lead.Name, &lead.Email, &lead.Platform, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		lead.CapturedAt = time.Unix(capturedAt, 0)
		leads = append(leads, &lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}
