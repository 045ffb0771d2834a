// Package intent classifies user messages into coarse intent labels.
package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const systemInstruction = "You are a simple intent classifier. Output only the intent category."

const classifyTemplate = `Classify the user message into exactly one intent category.

Categories:
- greeting: Hello, hi, hey, good morning, etc.
- pricing_inquiry: Questions about cost, plans, pricing
- product_inquiry: Questions about features, how it works
- high_intent_lead: User wants to sign up, try, start, buy, get started
- support_question: Questions about refunds, cancellation, policies
- farewell: Goodbye, thanks, bye, etc.
- other: Anything else

User message: "{{.message}}"

Reply with ONLY the intent name, nothing else.`

// LLMClassifier asks a chat model for the intent label.
type LLMClassifier struct {
	model  llms.Model
	prompt prompts.PromptTemplate
	logger *slog.Logger
}

// NewLLMClassifier creates a classifier backed by model.
func NewLLMClassifier(model llms.Model, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		model:  model,
		prompt: prompts.NewPromptTemplate(classifyTemplate, []string{"message"}),
		logger: logger.With("component", "intent"),
	}
}

// Classify returns the intent for text. It never fails: model errors and
// unrecognized output both yield domain.IntentOther.
func (c *LLMClassifier) Classify(ctx context.Context, text string) domain.Intent {
	prompt, err := c.prompt.Format(map[string]any{"message": text})
	if err != nil {
		c.logger.Error("failed to render classifier prompt", "error", err)
		return domain.IntentOther
	}

	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(0), llms.WithMaxTokens(50))
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to other", "error", err)
		return domain.IntentOther
	}
	if len(resp.Choices) == 0 {
		return domain.IntentOther
	}

	return Normalize(resp.Choices[0].Content)
}

// Normalize maps free-form model output to a label: the first known label
// contained in the lowercased output wins, otherwise IntentOther.
func Normalize(output string) domain.Intent {
	out := strings.ToLower(strings.TrimSpace(output))
	for _, label := range domain.Intents {
		if strings.Contains(out, string(label)) {
			return label
		}
	}
	return domain.IntentOther
}
