package conversation

import (
	"context"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

// Branch is the routing decision for a turn.
type Branch int

const (
	BranchRespond Branch = iota
	BranchCollect
)

func (b Branch) String() string {
	if b == BranchCollect {
		return "collect"
	}
	return "respond"
}

// Router classifies each turn and decides whether it belongs to lead collection.
type Router struct {
	classifier Classifier
}

// NewRouter creates a router using classifier.
func NewRouter(classifier Classifier) *Router {
	return &Router{classifier: classifier}
}

// Route mutates s with the new intent and collection state and returns the
// branch to run. Classification runs even mid-collection, but only the
// collection state decides the branch.
func (r *Router) Route(ctx context.Context, s *domain.Session, message string) Branch {
	intent := r.classifier.Classify(ctx, message)
	s.CurrentIntent = intent

	justCaptured := s.LeadCaptured
	s.LeadCaptured = false

	if intent == domain.IntentHighIntentLead && r.canStartCollection(s, justCaptured) {
		s.Stage = domain.StageAskName
		if s.Lead == nil {
			s.Lead = &domain.LeadData{}
		}
	}

	if s.IsCollectingLead() {
		return BranchCollect
	}
	return BranchRespond
}

// canStartCollection forbids re-entry once a lead has been taken.
func (r *Router) canStartCollection(s *domain.Session, justCaptured bool) bool {
	return !s.IsCollectingLead() &&
		!justCaptured &&
		s.Stage != domain.StageComplete &&
		!s.Lead.Complete()
}
