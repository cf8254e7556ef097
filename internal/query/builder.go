package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// DefaultKeywords are loose usage/billing words in Japanese and English
var DefaultKeywords = []string{
	"ご利用", "利用", "請求", "明細", "領収", "決済", "お支払い", "カード",
	"receipt", "invoice", "billing", "payment", "usage", "order",
}

// DefaultDomains are card issuers whose notices should always be listed
var DefaultDomains = []string{
	"jcb.co.jp",
	"smbc-card.com",
	"vpass.ne.jp",
	"rakuten-card.co.jp",
	"aeon.co.jp",
	"saisoncard.co.jp",
	"mufg.jp",
	"mufg-card.com",
	"epos-card.co.jp",
	"01epos.jp",
	"paypay-card.co.jp",
	"americanexpress.com",
}

// Builder builds a broad-recall search expression. It holds no state besides its word lists.
type Builder struct {
	keywords []string
	domains  []string
}

// NewBuilder creates a builder. Empty lists fall back to the defaults.
func NewBuilder(keywords, domains []string) *Builder {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if len(domains) == 0 {
		domains = DefaultDomains
	}
	return &Builder{
		keywords: dedupe(keywords),
		domains:  dedupe(domains),
	}
}

// Build returns the search expression for a lookback window in days
func (b *Builder) Build(lookbackDays int) string {
	if lookbackDays < 1 {
		lookbackDays = 1
	}

	terms := make([]string, 0, len(b.keywords)+len(b.domains))
	for _, k := range b.keywords {
		terms = append(terms, quote(k))
	}
	for _, d := range b.domains {
		terms = append(terms, "from:"+d)
	}

	return fmt.Sprintf("newer_than:%dd (%s)", lookbackDays, strings.Join(terms, " OR "))
}

// Query returns the expression together with the absolute start of the window
func (b *Builder) Query(lookbackDays int, now time.Time) core.SearchQuery {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	return core.SearchQuery{
		Expression: b.Build(lookbackDays),
		Since:      now.AddDate(0, 0, -lookbackDays),
	}
}

func quote(term string) string {
	if strings.ContainsAny(term, " \t\"") {
		return `"` + strings.ReplaceAll(term, `"`, "") + `"`
	}
	return term
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
