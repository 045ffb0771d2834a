package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
	"github.com/tmc/langchaingo/prompts"
)

const (
	capturedTemplate = "You're all set, %s! We'll send your welcome info to %s. Our team will reach out within 24 hours to help you get started!"
	askNamePrompt    = "That's great! I'd love to help you get started. What's your name?"
	askEmailTemplate = "Nice to meet you, %s! What's your email address?"
	askPlatformText  = "Got it! Which platform do you create content for? (YouTube, Instagram, TikTok, etc.)"
	startPrompt      = "Great! Let's get you started. What's your name?"
)

const systemPromptTemplate = `You are a friendly sales assistant for AutoStream, an automated video editing SaaS for content creators.

Help customers learn about our product and guide interested users toward signing up.

Keep responses conversational and concise (2-3 sentences).
{{.context}}

Pricing:
- Basic Plan: $29/month - 10 videos/month, 720p resolution
- Pro Plan: $79/month - Unlimited videos, 4K resolution, AI captions

Policies:
- No refunds after 7 days
- 24/7 support available only on Pro plan

If someone wants to sign up or try the product, let them know you can help get them started.`

// Defaults for the model-backed branch.
const (
	DefaultHistoryWindow = 6
	DefaultRetrievalTopK = 3
)

// Generator composes the reply for a routed turn.
type Generator struct {
	retriever     Retriever
	completer     Completer
	systemPrompt  prompts.PromptTemplate
	historyWindow int
	topK          int
	now           func() time.Time
}

// NewGenerator creates a generator. Non-positive window and topK use the defaults.
func NewGenerator(retriever Retriever, completer Completer, historyWindow, topK int) *Generator {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	return &Generator{
		retriever:     retriever,
		completer:     completer,
		systemPrompt:  prompts.NewPromptTemplate(systemPromptTemplate, []string{"context"}),
		historyWindow: historyWindow,
		topK:          topK,
		now:           time.Now,
	}
}

// Generate appends exactly one assistant message to s and returns it. Lead
// fields are never touched. On error s is left without a reply.
func (g *Generator) Generate(ctx context.Context, s *domain.Session) (string, error) {
	var (
		reply string
		err   error
	)
	switch {
	case s.LeadCaptured:
		reply = fmt.Sprintf(capturedTemplate, s.Lead.Name, s.Lead.Email)
	case s.IsCollectingLead():
		reply = stagePrompt(s)
	default:
		reply, err = g.answer(ctx, s)
		if err != nil {
			return "", err
		}
	}

	s.Append(domain.RoleAssistant, reply, g.now().UTC())
	s.TurnCount++
	return reply, nil
}

// stagePrompt returns the question for the field being collected.
func stagePrompt(s *domain.Session) string {
	switch s.Stage {
	case domain.StageAskName, domain.StageName:
		return askNamePrompt
	case domain.StageEmail:
		name := "there"
		if s.Lead != nil && s.Lead.Name != "" {
			name = s.Lead.Name
		}
		return fmt.Sprintf(askEmailTemplate, name)
	case domain.StagePlatform:
		return askPlatformText
	default:
		return startPrompt
	}
}

func (g *Generator) answer(ctx context.Context, s *domain.Session) (string, error) {
	var snippets []string
	if s.CurrentIntent.NeedsKnowledge() && g.retriever != nil {
		snippets = g.retriever.Search(s.LastUserMessage(), g.topK)
	}

	system, err := g.buildSystemPrompt(snippets)
	if err != nil {
		return "", err
	}
	return g.completer.Complete(ctx, system, s.RecentMessages(g.historyWindow))
}

func (g *Generator) buildSystemPrompt(snippets []string) (string, error) {
	var productInfo string
	if len(snippets) > 0 {
		productInfo = "\n\nProduct Information:\n" + strings.Join(snippets, "\n")
	}
	out, err := g.systemPrompt.Format(map[string]any{"context": productInfo})
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return out, nil
}
