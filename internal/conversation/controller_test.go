package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/shweta09111/autostream-agent/internal/intent"
	"github.com/shweta09111/autostream-agent/internal/knowledge"
	"github.com/shweta09111/autostream-agent/internal/lead"
	"github.com/shweta09111/autostream-agent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
	history [][]domain.Message
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []domain.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, systemPrompt)
	f.history = append(f.history, history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type countingSink struct {
	mu       sync.Mutex
	calls    []domain.LeadData
	sessions []string
}

func (c *countingSink) Capture(_ context.Context, _, sessionID string, data domain.LeadData) (*lead.CaptureResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, data)
	c.sessions = append(c.sessions, sessionID)
	return &lead.CaptureResult{Success: true, Lead: data}, nil
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// flakyStore fails the next UpsertSession once armed.
type flakyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failNext bool
}

func (f *flakyStore) arm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = true
}

func (f *flakyStore) UpsertSession(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("SQLITE_IOERR")
	}
	return f.MemoryStore.UpsertSession(ctx, s)
}

type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) GetSession(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("disk on fire")
}

type fixture struct {
	ctrl      *Controller
	repo      *store.MemoryStore
	completer *fakeCompleter
	sink      *countingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      store.NewMemory(),
		completer: &fakeCompleter{reply: "general answer"},
		sink:      &countingSink{},
	}
	f.ctrl = NewController(Deps{
		Store:      f.repo,
		Classifier: intent.NewKeywordClassifier(),
		Retriever:  knowledge.Fallback(),
		Completer:  f.completer,
		Sink:       f.sink,
	})
	return f
}

func (f *fixture) turn(t *testing.T, threadID, msg string) *TurnResult {
	t.Helper()
	res, err := f.ctrl.HandleTurn(context.Background(), threadID, msg)
	require.NoError(t, err)
	assert.Equal(t, res.AwaitingField.Collecting(), res.CollectingLead)
	return res
}

func (f *fixture) capture(t *testing.T, threadID string) *TurnResult {
	t.Helper()
	f.turn(t, threadID, "I want to sign up")
	f.turn(t, threadID, "Alice")
	f.turn(t, threadID, "alice@example.com")
	return f.turn(t, threadID, "YouTube")
}

func TestHandleTurnCapturesLeadOverFourTurns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.turn(t, "t1", "I want to sign up")
	assert.Equal(t, domain.IntentHighIntentLead, res.Intent)
	assert.Equal(t, domain.StageName, res.AwaitingField)
	assert.Equal(t, askNamePrompt, res.Reply)

	res = f.turn(t, "t1", "Alice")
	assert.Equal(t, domain.StageEmail, res.AwaitingField)
	assert.Equal(t, "Nice to meet you, Alice! What's your email address?", res.Reply)

	res = f.turn(t, "t1", "alice@example.com")
	assert.Equal(t, domain.StagePlatform, res.AwaitingField)
	assert.Equal(t, askPlatformText, res.Reply)
	assert.Equal(t, 0, f.sink.count())

	res = f.turn(t, "t1", "YouTube")
	assert.True(t, res.LeadCaptured)
	assert.False(t, res.CollectingLead)
	assert.Equal(t, domain.StageComplete, res.AwaitingField)
	assert.Equal(t, "You're all set, Alice! We'll send your welcome info to alice@example.com. Our team will reach out within 24 hours to help you get started!", res.Reply)
	assert.Equal(t, 4, res.Turn)

	require.Equal(t, 1, f.sink.count())
	assert.Equal(t, domain.LeadData{Name: "Alice", Email: "alice@example.com", Platform: "YouTube"}, f.sink.calls[0])

	stored, err := f.repo.GetSession(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, f.sink.calls[0], *stored.Lead)
	assert.Equal(t, stored.ID, f.sink.sessions[0])
	assert.Len(t, stored.Messages, 8)
	assert.Empty(t, f.completer.systems)
}

func TestHandleTurnLeadCapturedIsOneShot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.True(t, f.capture(t, "t1").LeadCaptured)

	res := f.turn(t, "t1", "thanks")
	assert.False(t, res.LeadCaptured)
	assert.Equal(t, "general answer", res.Reply)
	assert.Equal(t, domain.IntentFarewell, res.Intent)
}

func TestHandleTurnDoesNotRestartCollectionAfterCapture(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.capture(t, "t1")

	for range 2 {
		res := f.turn(t, "t1", "I want to sign up")
		assert.Equal(t, domain.IntentHighIntentLead, res.Intent)
		assert.False(t, res.CollectingLead)
		assert.False(t, res.LeadCaptured)
		assert.Equal(t, domain.StageComplete, res.AwaitingField)
		assert.Equal(t, "general answer", res.Reply)
	}
	assert.Equal(t, 1, f.sink.count())
}

func TestHandleTurnSaveFailureDefersLeadCapture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &flakyStore{MemoryStore: store.NewMemory()}
	sink := &countingSink{}
	ctrl := NewController(Deps{
		Store:      repo,
		Classifier: intent.NewKeywordClassifier(),
		Retriever:  knowledge.Fallback(),
		Completer:  &fakeCompleter{reply: "general answer"},
		Sink:       sink,
	})

	for _, msg := range []string{"I want to sign up", "Alice", "alice@example.com"} {
		_, err := ctrl.HandleTurn(ctx, "t1", msg)
		require.NoError(t, err)
	}

	repo.arm()
	_, err := ctrl.HandleTurn(ctx, "t1", "YouTube")
	require.Error(t, err)
	assert.Equal(t, 0, sink.count())

	stored, err := repo.GetSession(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePlatform, stored.Stage)
	assert.False(t, stored.LeadCaptured)

	res, err := ctrl.HandleTurn(ctx, "t1", "YouTube")
	require.NoError(t, err)
	assert.True(t, res.LeadCaptured)
	assert.Equal(t, 1, sink.count())
}

func TestHandleTurnReusedThreadCapturesNewLead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := store.NewMemory()
	ctrl := NewController(Deps{
		Store:      repo,
		Classifier: intent.NewKeywordClassifier(),
		Retriever:  knowledge.Fallback(),
		Completer:  &fakeCompleter{reply: "general answer"},
		Sink:       lead.NewStoreSink(repo, nil),
	})
	run := func(name, email string) {
		for _, msg := range []string{"I want to sign up", name, email, "YouTube"} {
			_, err := ctrl.HandleTurn(ctx, "t1", msg)
			require.NoError(t, err)
		}
	}

	run("Alice", "alice@example.com")
	require.NoError(t, repo.DeleteSession(ctx, "t1"))
	run("Bob", "bob@example.com")

	leads, err := repo.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Alice", leads[0].Name)
	assert.Equal(t, "Bob", leads[1].Name)
	assert.Equal(t, "t1", leads[1].ThreadID)
	assert.NotEqual(t, leads[0].SessionID, leads[1].SessionID)
}

func TestHandleTurnInvalidEmailRepromptsSilently(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.turn(t, "t1", "I want to sign up")
	first := f.turn(t, "t1", "Alice")

	res := f.turn(t, "t1", "not-an-email")
	assert.Equal(t, domain.StageEmail, res.AwaitingField)
	assert.True(t, res.CollectingLead)
	assert.Equal(t, first.Reply, res.Reply)

	stored, err := f.repo.GetSession(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, stored.Lead.Email)
}

func TestHandleTurnIntentDriftDoesNotInterruptCollection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.turn(t, "t1", "I want to sign up")
	res := f.turn(t, "t1", "how much is the pro plan")

	assert.Equal(t, domain.IntentPricingInquiry, res.Intent)
	assert.Equal(t, domain.StageEmail, res.AwaitingField)
	assert.Empty(t, f.completer.systems)
}

func TestHandleTurnGroundsKnowledgeIntents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for i := range 5 {
		f.turn(t, "t1", fmt.Sprintf("hello %d", i))
	}
	res := f.turn(t, "t1", "How much does the Pro plan cost?")
	assert.Equal(t, domain.IntentPricingInquiry, res.Intent)

	last := len(f.completer.systems) - 1
	assert.Contains(t, f.completer.systems[last], "Product Information:\nPro Plan: $79/month")
	assert.Contains(t, f.completer.systems[last], "You are a friendly sales assistant for AutoStream")
	assert.Len(t, f.completer.history[last], DefaultHistoryWindow)
	assert.Equal(t, "How much does the Pro plan cost?", f.completer.history[last][DefaultHistoryWindow-1].Content)

	assert.NotContains(t, f.completer.systems[0], "Product Information:")
}

func TestHandleTurnProviderFailureRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.turn(t, "t1", "hello")
	before, err := f.repo.GetSession(ctx, "t1")
	require.NoError(t, err)

	f.completer.fail(fmt.Errorf("%w: boom", domain.ErrProviderUnavailable))
	_, err = f.ctrl.HandleTurn(ctx, "t1", "what features do you have?")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)

	after, err := f.repo.GetSession(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ctrl.HandleTurn(context.Background(), "t1", "   ")
	require.ErrorIs(t, err, domain.ErrEmptyMessage)

	s, err := f.repo.GetSession(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHandleTurnLoadFailureStartsFresh(t *testing.T) {
	t.Parallel()

	repo := brokenStore{store.NewMemory()}
	ctrl := NewController(Deps{
		Store:      repo,
		Classifier: intent.NewKeywordClassifier(),
		Completer:  &fakeCompleter{reply: "hi!"},
		Sink:       &countingSink{},
	})

	res, err := ctrl.HandleTurn(context.Background(), "t1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi!", res.Reply)
	assert.Equal(t, 1, res.Turn)
}

func TestHandleTurnGeneratesThreadID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.turn(t, "", "hello")
	assert.NotEmpty(t, res.ThreadID)

	s, err := f.ctrl.Session(context.Background(), res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TurnCount)

	_, err = f.ctrl.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHandleTurnSerializesSameThread(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.HandleTurn(context.Background(), "t1", fmt.Sprintf("hello %d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := f.repo.GetSession(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, n, s.TurnCount)
	assert.Len(t, s.Messages, 2*n)
	assert.Equal(t, 0, f.ctrl.locks.size())
}

func TestReplyReturnsText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	reply, err := f.ctrl.Reply(context.Background(), "t1", "I want to sign up")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(reply, "What's your name?"))
}
