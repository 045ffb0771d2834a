package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/tmc/langchaingo/llms"
)

var errEmptyCompletion = errors.New("model returned no content")

// Completer turns a system prompt plus conversation history into a reply.
type Completer struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewCompleter wraps model with generation settings from cfg.
func NewCompleter(model llms.Model, cfg Config) *Completer {
	return &Completer{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
}

// Complete calls the model. Any failure, including a timeout, is reported as
// domain.ErrProviderUnavailable.
func (c *Completer) Complete(ctx context.Context, systemPrompt string, history []domain.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]llms.MessageContent, 0, len(history)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}

	var opts []llms.CallOption
	opts = append(opts, llms.WithTemperature(c.temperature))
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, errEmptyCompletion)
	}
	return resp.Choices[0].Content, nil
}
