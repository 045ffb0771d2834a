package lead

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/shweta09111/autostream-agent/internal/store"
)

// CaptureResult is the sink's acknowledgement of a lead.
type CaptureResult struct {
	Success bool
	Lead    domain.LeadData
}

// Sink receives completed leads. sessionID distinguishes successive sessions
// on a reused thread.
type Sink interface {
	Capture(ctx context.Context, threadID, sessionID string, data domain.LeadData) (*CaptureResult, error)
}

// StoreSink persists leads through the repository.
type StoreSink struct {
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewStoreSink creates a sink backed by repo.
func NewStoreSink(repo store.Repository, logger *slog.Logger) *StoreSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSink{repo: repo, logger: logger.With("component", "lead_sink"), now: time.Now}
}

// Capture stores the lead. A second capture for the same session is not
// stored and reports Success false.
func (s *StoreSink) Capture(ctx context.Context, threadID, sessionID string, data domain.LeadData) (*CaptureResult, error) {
	l := &domain.Lead{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		ThreadID:   threadID,
		Name:       data.Name,
		Email:      data.Email,
		Platform:   data.Platform,
		CapturedAt: s.now().UTC(),
	}
	saved, err := s.repo.SaveLead(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}
	if !saved {
		s.logger.Warn("lead already recorded for session", "thread_id", threadID, "session_id", sessionID)
		return &CaptureResult{Success: false, Lead: data}, nil
	}

	s.logger.Info("lead captured",
		"lead_id", l.ID,
		"thread_id", threadID,
		"session_id", sessionID,
		"name", data.Name,
		"email", data.Email,
		"platform", data.Platform,
	)
	return &CaptureResult{Success: true, Lead: data}, nil
}

// LogSink only logs captured leads.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "lead_sink")}
}

// Capture logs the lead and always succeeds.
func (s *LogSink) Capture(_ context.Context, threadID, sessionID string, data domain.LeadData) (*CaptureResult, error) {
	s.logger.Info("lead captured",
		"thread_id", threadID,
		"session_id", sessionID,
		"name", data.Name,
		"email", data.Email,
		"platform", data.Platform,
	)
	return &CaptureResult{Success: true, Lead: data}, nil
}
