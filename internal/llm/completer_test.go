package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type mockLLM struct {
	response string
	err      error
	block    bool
	got      []llms.MessageContent
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.got = messages
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.response}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestCompleteBuildsMessages(t *testing.T) {
	t.Parallel()

	model := &mockLLM{response: "Pro is $79/month."}
	c := NewCompleter(model, Config{Temperature: 0.7, MaxTokens: 500, Timeout: time.Second})

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "how much is pro?"},
		{Role: domain.RoleAssistant, Content: "Let me check."},
		{Role: domain.RoleUser, Content: "thanks"},
	}
	out, err := c.Complete(context.Background(), "system prompt", history)
	require.NoError(t, err)
	assert.Equal(t, "Pro is $79/month.", out)

	require.Len(t, model.got, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.got[0].Role)
	assert.Equal(t, "system prompt", textOf(model.got[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, model.got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.got[2].Role)
	assert.Equal(t, "thanks", textOf(model.got[3]))
}

func TestCompleteWrapsProviderErrors(t *testing.T) {
	t.Parallel()

	c := NewCompleter(&mockLLM{err: errors.New("connection refused")}, Config{Timeout: time.Second})
	_, err := c.Complete(context.Background(), "sys", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestCompleteTimesOut(t *testing.T) {
	t.Parallel()

	c := NewCompleter(&mockLLM{block: true}, Config{Timeout: 20 * time.Millisecond})
	_, err := c.Complete(context.Background(), "sys", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteRejectsEmptyOutput(t *testing.T) {
	t.Parallel()

	c := NewCompleter(&mockLLM{response: "   "}, Config{Timeout: time.Second})
	_, err := c.Complete(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestMockModelEchoesLastHumanMessage(t *testing.T) {
	t.Parallel()

	out, err := NewMockModel().Call(context.Background(), "what does pro cost?")
	require.NoError(t, err)
	assert.Contains(t, out, "what does pro cost?")
}

func TestMockModelTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	out, err := NewMockModel().Call(context.Background(), strings.Repeat("é", 150))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("é", 100)+"...")
	assert.NotContains(t, out, strings.Repeat("é", 101))
	assert.NotContains(t, out, `\x`)
}

func TestNewModelMockAndUnknown(t *testing.T) {
	t.Parallel()

	m, err := NewModel(Config{Provider: ProviderMock})
	require.NoError(t, err)
	assert.IsType(t, &MockModel{}, m)

	_, err = NewModel(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
