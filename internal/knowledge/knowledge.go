// Package knowledge loads the product information document and answers
// keyword queries over it.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTopK is used when Search is called with a non-positive topK.
const DefaultTopK = 3

// fallbackSnippets are served when no product document is present.
var fallbackSnippets = []string{
	"Basic Plan: $29/month - 10 videos/month, 720p resolution",
	"Pro Plan: $79/month - Unlimited videos, 4K resolution, AI captions",
	"No refunds after 7 days",
	"24/7 support available only on Pro plan",
}

// Document is the structured product information file.
type Document struct {
	Pricing  *Pricing  `json:"pricing,omitempty" yaml:"pricing,omitempty"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty"`
	FAQs     []FAQ     `json:"faqs,omitempty" yaml:"faqs,omitempty"`
	Policies *Policies `json:"policies,omitempty" yaml:"policies,omitempty"`
}

// Pricing lists the available plans.
type Pricing struct {
	Plans []Plan `json:"plans,omitempty" yaml:"plans,omitempty"`
	Trial string `json:"trial,omitempty" yaml:"trial,omitempty"`
}

// Plan is a single subscription tier.
type Plan struct {
	Name     string   `json:"name" yaml:"name"`
	Price    float64  `json:"price" yaml:"price"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
}

// Feature describes a product capability.
type Feature struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// FAQ is a question with its canned answer.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Policies holds refund and support terms.
type Policies struct {
	Refund  string `json:"refund,omitempty" yaml:"refund,omitempty"`
	Support string `json:"support,omitempty" yaml:"support,omitempty"`
}

// Base is an immutable set of flattened snippets.
type Base struct {
	snippets []string
}

// New builds a Base from pre-flattened snippets.
func New(snippets []string) *Base {
	s := make([]string, len(snippets))
	copy(s, snippets)
	return &Base{snippets: s}
}

// Fallback returns the built-in snippet set.
func Fallback() *Base {
	return New(fallbackSnippets)
}

// Load reads a product document from path. JSON is assumed unless the file
// has a .yaml or .yml extension. A missing file yields the fallback snippets.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("knowledge base not found, using built-in snippets", "path", path)
		return Fallback(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse knowledge base %s: %w", path, err)
	}

	b := FromDocument(doc)
	slog.Info("knowledge base loaded", "path", path, "snippets", b.Len())
	return b, nil
}

// FromDocument flattens a Document into searchable snippets.
func FromDocument(doc Document) *Base {
	var snippets []string

	if doc.Pricing != nil {
		for _, plan := range doc.Pricing.Plans {
			snippets = append(snippets, fmt.Sprintf("Plan: %s - $%s/month. Features: %s",
				plan.Name, strconv.FormatFloat(plan.Price, 'f', -1, 64), strings.Join(plan.Features, ", ")))
		}
		if doc.Pricing.Trial != "" {
			snippets = append(snippets, "Free trial: "+doc.Pricing.Trial)
		}
	}

	for _, f := range doc.Features {
		snippets = append(snippets, fmt.Sprintf("Feature: %s - %s", f.Name, f.Description))
	}

	for _, faq := range doc.FAQs {
		snippets = append(snippets, fmt.Sprintf("FAQ: %s Answer: %s", faq.Question, faq.Answer))
	}

	if doc.Policies != nil {
		if doc.Policies.Refund != "" {
			snippets = append(snippets, "Refund policy: "+doc.Policies.Refund)
		}
		if doc.Policies.Support != "" {
			snippets = append(snippets, "Support: "+doc.Policies.Support)
		}
	}

	return &Base{snippets: snippets}
}

// Len returns the number of snippets.
func (b *Base) Len() int {
	return len(b.snippets)
}

// Search returns up to topK snippets ranked by how many query terms they
// contain. Snippets with no matching term are dropped; ties keep document order.
func (b *Base) Search(query string, topK int) []string {
	if topK <= 0 {
		topK = DefaultTopK
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || len(b.snippets) == 0 {
		return []string{}
	}

	type scored struct {
		score int
		text  string
	}
	var hits []scored
	for _, doc := range b.snippets {
		lower := strings.ToLower(doc)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{score: score, text: doc})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}
