package domain

import "strings"

// Intent is the coarse classification label of a user message.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentPricingInquiry  Intent = "pricing_inquiry"
	IntentProductInquiry  Intent = "product_inquiry"
	IntentHighIntentLead  Intent = "high_intent_lead"
	IntentSupportQuestion Intent = "support_question"
	IntentFarewell        Intent = "farewell"
	IntentOther           Intent = "other"
)

// Intents lists every label in matching order.
var Intents = []Intent{
	IntentGreeting,
	IntentPricingInquiry,
	IntentProductInquiry,
	IntentHighIntentLead,
	IntentSupportQuestion,
	IntentFarewell,
	IntentOther,
}

// ParseIntent maps a label to an Intent. Unknown labels map to IntentOther.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, i := range Intents {
		if string(i) == s {
			return i
		}
	}
	return IntentOther
}

// NeedsKnowledge reports whether answers to this intent are grounded in the
// product knowledge base.
func (i Intent) NeedsKnowledge() bool {
	switch i {
	case IntentPricingInquiry, IntentProductInquiry, IntentSupportQuestion:
		return true
	default:
		return false
	}
}
