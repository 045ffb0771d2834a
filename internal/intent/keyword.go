package intent

import (
	"context"
	"strings"
	"unicode"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

type rule struct {
	intent  domain.Intent
	phrases []string
}

// Rules are checked in order; lead intent wins over pricing so that
// "I want to buy the pro plan" starts collection.
var keywordRules = []rule{
	{domain.IntentHighIntentLead, []string{"sign up", "signup", "sign me up", "get started", "subscribe", "buy", "purchase", "i want to try", "want to start", "start my trial", "register"}},
	{domain.IntentSupportQuestion, []string{"refund", "cancel", "cancellation", "policy", "policies", "support"}},
	{domain.IntentPricingInquiry, []string{"price", "pricing", "cost", "how much", "plan", "plans", "per month", "cheap"}},
	{domain.IntentProductInquiry, []string{"feature", "features", "how does", "how do", "work", "caption", "captions", "resolution", "4k", "edit", "editing", "export"}},
	{domain.IntentFarewell, []string{"bye", "goodbye", "thanks", "thank you", "see you"}},
	{domain.IntentGreeting, []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}},
}

// KeywordClassifier is a deterministic offline classifier.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a keyword classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify matches whole-word phrases against text.
func (KeywordClassifier) Classify(_ context.Context, text string) domain.Intent {
	normalized := " " + strings.Join(tokenize(text), " ") + " "
	for _, r := range keywordRules {
		for _, p := range r.phrases {
			if strings.Contains(normalized, " "+p+" ") {
				return r.intent
			}
		}
	}
	return domain.IntentOther
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
