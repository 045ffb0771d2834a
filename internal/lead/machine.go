// Package lead drives the name, email and platform collection sub-dialogue.
package lead

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether email is syntactically valid.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// transition consumes input for one stage. It returns false when the input
// is rejected and the stage must not advance.
type transition struct {
	next    domain.LeadStage
	consume func(data *domain.LeadData, input string) bool
}

var transitions = map[domain.LeadStage]transition{
	// The trigger message is not the person's name.
	domain.StageAskName: {
		next:    domain.StageName,
		consume: func(*domain.LeadData, string) bool { return true },
	},
	domain.StageName: {
		next: domain.StageEmail,
		consume: func(d *domain.LeadData, in string) bool {
			d.Name = in
			return true
		},
	},
	domain.StageEmail: {
		next: domain.StagePlatform,
		consume: func(d *domain.LeadData, in string) bool {
			if !ValidateEmail(in) {
				return false
			}
			d.Email = in
			return true
		},
	},
	domain.StagePlatform: {
		next: domain.StageComplete,
		consume: func(d *domain.LeadData, in string) bool {
			d.Platform = in
			return true
		},
	},
}

// Machine advances sessions through lead collection.
type Machine struct {
	sink   Sink
	logger *slog.Logger
}

// NewMachine creates a state machine that reports captured leads to sink.
func NewMachine(sink Sink, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{sink: sink, logger: logger.With("component", "lead")}
}

// Advance applies one user input to s. Sessions that are not collecting are
// left untouched. It reports true on the transition into StageComplete; the
// caller then owns delivering the lead with Capture, once the session has been
// persisted.
func (m *Machine) Advance(ctx context.Context, s *domain.Session, input string) bool {
	if !s.IsCollectingLead() {
		return false
	}
	t, ok := transitions[s.Stage]
	if !ok {
		return false
	}
	if s.Lead == nil {
		s.Lead = &domain.LeadData{}
	}

	if !t.consume(s.Lead, strings.TrimSpace(input)) {
		m.logger.DebugContext(ctx, "lead input rejected", "thread_id", s.ThreadID, "stage", s.Stage)
		return false
	}
	s.Stage = t.next

	if s.Stage == domain.StageComplete && s.Lead.Complete() {
		s.LeadCaptured = true
		return true
	}
	return false
}

// Capture hands the completed lead of s to the sink. Sink failures are logged
// and not returned; the conversation acknowledges the lead either way.
func (m *Machine) Capture(ctx context.Context, s *domain.Session) {
	if !s.Lead.Complete() {
		return
	}
	result, err := m.sink.Capture(ctx, s.ThreadID, s.ID, *s.Lead)
	switch {
	case err != nil:
		m.logger.Error("lead sink failed", "thread_id", s.ThreadID, "error", err)
	case result == nil || !result.Success:
		m.logger.Error("lead sink rejected capture", "thread_id", s.ThreadID)
	}
}
