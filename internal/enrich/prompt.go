package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// SystemPrompt is sent as the system message by chat-style categorizers
const SystemPrompt = "You categorize merchants that appear on Japanese credit card usage notices. Respond only with JSON."

const promptFormat = `Identify the merchant of the following card charge and categorize it.
Respond with a JSON object containing:
- merchant: string (the common name of the merchant or service)
- category: one of %s
- subscription: boolean (true if this is a recurring service charge)
- confidence: number between 0 and 1 (how confident you are)

Charge:
Merchant text: %s
Amount: %d JPY
Sender domain: %s
Notice excerpt:
%s

Respond only with the JSON object and nothing else.`

// Answer is the JSON object a categorizer is asked to return
type Answer struct {
	Merchant     string  `json:"merchant"`
	Category     string  `json:"category"`
	Subscription bool    `json:"subscription"`
	Confidence   float64 `json:"confidence"`
}

// BuildPrompt renders the categorization prompt. snippet should already be truncated.
func BuildPrompt(q *core.MerchantQuery, snippet string) string {
	return fmt.Sprintf(promptFormat, strings.Join(Categories, ", "), q.Merchant, q.Amount, q.SenderDomain, snippet)
}

// ParseAnswer decodes a model response, tolerating text around the JSON object
func ParseAnswer(text string) (*Answer, error) {
	var a Answer
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}
	return &a, nil
}

// ToCategory converts an answer into the core type
func (a *Answer) ToCategory(model string) *core.MerchantCategory {
	return &core.MerchantCategory{
		Merchant:     strings.TrimSpace(a.Merchant),
		Category:     CanonicalCategory(a.Category),
		Subscription: a.Subscription,
		Confidence:   max(0, min(a.Confidence, 1)),
		ModelUsed:    model,
	}
}
