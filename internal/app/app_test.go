package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shweta09111/autostream-agent/internal/config"
	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:              "0",
		StoreDriver:       driver,
		DBPath:            filepath.Join(dir, "data", "test.db"),
		KnowledgeBasePath: filepath.Join(dir, "missing.json"),
		Mode:              config.ModeMock,
		LLM: config.LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-3-haiku-20240307",
			Temperature: 0.7,
			MaxTokens:   500,
			Timeout:     5 * time.Second,
		},
		Conversation: config.ConversationConfig{HistoryWindow: 6, RetrievalTopK: 3},
	}
}

func TestNewMockAppHandlesTurns(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			a, err := New(mockConfig(t, driver), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			assert.Equal(t, 4, a.Knowledge.Len())

			ctx := context.Background()
			res, err := a.Controller.HandleTurn(ctx, "t1", "How much is the Pro plan?")
			require.NoError(t, err)
			assert.Equal(t, domain.IntentPricingInquiry, res.Intent)
			assert.True(t, strings.HasPrefix(res.Reply, "[MOCK]"), res.Reply)

			res, err = a.Controller.HandleTurn(ctx, "t1", "I want to sign up")
			require.NoError(t, err)
			assert.True(t, res.CollectingLead)

			require.NoError(t, a.Repo.Ping(ctx))
		})
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	t.Parallel()

	_, err := New(mockConfig(t, "redis"), nil)
	require.Error(t, err)
}
