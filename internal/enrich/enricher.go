// Package enrich maps the merchant text a notice carries to a known service and
// category, falling back to a model-backed categorizer or the raw text.
package enrich

import (
	"context"
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// Enrichment sources
const (
	SourceDictionary = "dictionary"
	SourceLLM        = "llm"
	SourceRaw        = "raw"
)

// DefaultMinConfidence is the dictionary score an entry must reach to be used
const DefaultMinConfidence = 0.6

// Enricher implements core.Enricher
type Enricher struct {
	dict          *Dictionary
	minConfidence float64
	categorizer   core.MerchantCategorizer
	logger        *zap.Logger
}

// New creates an enricher. categorizer may be nil.
func New(dict *Dictionary, minConfidence float64, categorizer core.MerchantCategorizer, logger *zap.Logger) *Enricher {
	if dict == nil {
		dict = DefaultDictionary()
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		dict:          dict,
		minConfidence: minConfidence,
		categorizer:   categorizer,
		logger:        logger,
	}
}

// Enrich never fails. When neither the dictionary nor the categorizer gives a
// confident answer the raw merchant text comes back with category "other".
func (e *Enricher) Enrich(ctx context.Context, in core.EnrichInput) core.Enrichment {
	if m, ok := e.dict.Match(in); ok && m.Score >= e.minConfidence {
		return core.Enrichment{
			Merchant:     m.Entry.Name,
			Category:     m.Entry.Category,
			Subscription: m.Entry.Subscription(),
			Billing:      m.Entry.Billing,
			Confidence:   m.Score,
			Source:       SourceDictionary,
		}
	}

	raw := strings.TrimSpace(in.Merchant)

	if e.categorizer != nil && (raw != "" || strings.TrimSpace(in.Snippet) != "") {
		answer, err := e.categorizer.CategorizeMerchant(ctx, &core.MerchantQuery{
			Merchant:     raw,
			Snippet:      in.Snippet,
			Amount:       in.Amount,
			SenderDomain: in.SenderDomain,
		})
		switch {
		case err != nil:
			e.logger.Warn("Merchant categorizer failed",
				zap.String("merchant", raw),
				zap.Error(err))
		case answer != nil && answer.Confidence >= e.minConfidence:
			merchant := strings.TrimSpace(answer.Merchant)
			if merchant == "" {
				merchant = raw
			}
			return core.Enrichment{
				Merchant:     merchant,
				Category:     CanonicalCategory(answer.Category),
				Subscription: answer.Subscription,
				Confidence:   answer.Confidence,
				Source:       SourceLLM,
			}
		default:
			e.logger.Debug("Merchant categorizer answer below threshold",
				zap.String("merchant", raw),
				zap.Float64("min_confidence", e.minConfidence))
		}
	}

	return core.Enrichment{
		Merchant: raw,
		Category: CategoryOther,
		Source:   SourceRaw,
	}
}

// CanonicalCategory maps a free-form category to a known one
func CanonicalCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}
