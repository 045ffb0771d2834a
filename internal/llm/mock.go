package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// MockModel is an offline llms.Model that echoes the last human message.
type MockModel struct{}

// NewMockModel creates a new mock model.
func NewMockModel() *MockModel {
	return &MockModel{}
}

var _ llms.Model = (*MockModel)(nil)

// GenerateContent returns a canned reply built from the last human message.
func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llms.ChatMessageTypeHuman {
			last = textOf(messages[i])
			break
		}
	}

	reply := "[MOCK] Thanks for reaching out! Ask me about AutoStream plans, features or policies."
	if last != "" {
		reply = fmt.Sprintf("[MOCK] You asked: %q. AutoStream offers Basic ($29/month) and Pro ($79/month) plans.", truncate(last, 100))
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply, StopReason: "stop"}},
	}, nil
}

// Call implements the single-prompt form.
func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(mc llms.MessageContent) string {
	var b strings.Builder
	for _, p := range mc.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
