package domain

import "time"

// LeadStage is the state of the lead collection sub-dialogue.
type LeadStage string

const (
	StageNone     LeadStage = ""
	StageAskName  LeadStage = "ask_name"
	StageName     LeadStage = "name"
	StageEmail    LeadStage = "email"
	StagePlatform LeadStage = "platform"
	StageComplete LeadStage = "complete"
)

// Collecting reports whether the stage belongs to an active collection.
func (s LeadStage) Collecting() bool {
	switch s {
	case StageAskName, StageName, StageEmail, StagePlatform:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known stage.
func (s LeadStage) Valid() bool {
	return s == StageNone || s == StageComplete || s.Collecting()
}

// LeadData holds the fields gathered during collection. Empty means absent.
type LeadData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Platform string `json:"platform"`
}

// Complete reports whether all three fields are present.
func (l *LeadData) Complete() bool {
	return l != nil && l.Name != "" && l.Email != "" && l.Platform != ""
}

// Lead is a captured prospective customer.
type Lead struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ThreadID   string    `json:"thread_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Platform   string    `json:"platform"`
	CapturedAt time.Time `json:"captured_at"`
}
