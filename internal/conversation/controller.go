package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/shweta09111/autostream-agent/internal/lead"
)

// Deps are the collaborators of a Controller. They are built once at startup.
type Deps struct {
	Store         SessionStore
	Classifier    Classifier
	Retriever     Retriever
	Completer     Completer
	Sink          lead.Sink
	Logger        *slog.Logger
	HistoryWindow int
	RetrievalTopK int
}

// TurnResult describes the outcome of one turn.
type TurnResult struct {
	ThreadID       string           `json:"thread_id"`
	Reply          string           `json:"reply"`
	Intent         domain.Intent    `json:"intent"`
	CollectingLead bool             `json:"collecting_lead"`
	AwaitingField  domain.LeadStage `json:"awaiting_field"`
	LeadCaptured   bool             `json:"lead_captured"`
	Turn           int              `json:"turn"`
}

// Controller is the single writer of session state.
type Controller struct {
	store     SessionStore
	router    *Router
	machine   *lead.Machine
	generator *Generator
	locks     *threadLocks
	logger    *slog.Logger
	now       func() time.Time
}

// NewController wires the turn pipeline from deps.
func NewController(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     deps.Store,
		router:    NewRouter(deps.Classifier),
		machine:   lead.NewMachine(deps.Sink, logger),
		generator: NewGenerator(deps.Retriever, deps.Completer, deps.HistoryWindow, deps.RetrievalTopK),
		locks:     newThreadLocks(),
		logger:    logger.With("component", "conversation"),
		now:       time.Now,
	}
}

// NewThreadID returns a fresh thread id.
func NewThreadID() string {
	return uuid.NewString()
}

// HandleTurn processes one user message for threadID. The session is only
// persisted when the whole turn succeeds, so a provider or store failure
// leaves the stored state as it was before the call. A completed lead reaches
// the sink only after the session recording its capture has been saved.
func (c *Controller) HandleTurn(ctx context.Context, threadID, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if threadID == "" {
		threadID = NewThreadID()
	}

	unlock := c.locks.lock(threadID)
	defer unlock()

	now := c.now().UTC()
	session := c.load(ctx, threadID, now)

	session.Append(domain.RoleUser, message, now)
	branch := c.router.Route(ctx, session, message)
	var captured bool
	if branch == BranchCollect {
		captured = c.machine.Advance(ctx, session, message)
	}

	reply, err := c.generator.Generate(ctx, session)
	if err != nil {
		c.logger.Error("turn aborted", "thread_id", threadID, "intent", session.CurrentIntent, "error", err)
		return nil, err
	}

	session.UpdatedAt = c.now().UTC()
	if err := c.store.UpsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if captured {
		c.machine.Capture(ctx, session)
	}

	c.logger.Debug("turn handled",
		"thread_id", threadID,
		"intent", session.CurrentIntent,
		"branch", branch.String(),
		"stage", session.Stage,
		"turn", session.TurnCount,
	)

	return &TurnResult{
		ThreadID:       threadID,
		Reply:          reply,
		Intent:         session.CurrentIntent,
		CollectingLead: session.IsCollectingLead(),
		AwaitingField:  session.Stage,
		LeadCaptured:   session.LeadCaptured,
		Turn:           session.TurnCount,
	}, nil
}

// Reply is HandleTurn returning only the reply text.
func (c *Controller) Reply(ctx context.Context, threadID, message string) (string, error) {
	res, err := c.HandleTurn(ctx, threadID, message)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// Session returns a copy of the stored session for threadID.
func (c *Controller) Session(ctx context.Context, threadID string) (*domain.Session, error) {
	s, err := c.store.GetSession(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if s == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// load returns a private copy of the stored session, or a fresh one when the
// thread is unknown or the store fails.
func (c *Controller) load(ctx context.Context, threadID string, now time.Time) *domain.Session {
	stored, err := c.store.GetSession(ctx, threadID)
	if err != nil {
		c.logger.Warn("failed to load session, starting fresh", "thread_id", threadID, "error", err)
		return domain.NewSession(threadID, now)
	}
	if stored == nil {
		return domain.NewSession(threadID, now)
	}
	return stored.Clone()
}
