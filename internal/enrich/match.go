package enrich

import (
	"strings"
	"unicode"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"golang.org/x/text/unicode/norm"
)

// Match kinds, strongest first
const (
	MatchAliasExact     = "alias-exact"
	MatchPattern        = "pattern"
	MatchAliasSubstring = "alias-substring"
	MatchSnippet        = "snippet"
)

const (
	scoreAliasExact     = 0.95
	scorePattern        = 0.9
	scoreAliasSubstring = 0.75
	scoreSnippet        = 0.55

	domainBonus  = 0.1
	priceBonus   = 0.1
	pricePenalty = 0.15

	minAliasRunes = 3
)

var corporateAffixes = []string{
	"株式会社", "有限会社", "合同会社", "(株)", "(有)", "㈱", "㈲",
}

var corporateWords = map[string]struct{}{
	"inc": {}, "co": {}, "ltd": {}, "llc": {}, "corp": {}, "corporation": {}, "kk": {}, "gk": {},
}

// NormalizeName folds a merchant name for comparison: NFKC, lower case, corporate
// affixes and punctuation removed, spaces collapsed.
func NormalizeName(s string) string {
	s = norm.NFKC.String(s)
	for _, a := range corporateAffixes {
		s = strings.ReplaceAll(s, a, " ")
	}
	s = strings.ToLower(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '+' {
			return r
		}
		return ' '
	}, s)

	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if _, corp := corporateWords[w]; corp {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// fold prepares free text for pattern matching without dropping punctuation
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(s))), " ")
}

// Match is the best dictionary entry for an input
type Match struct {
	Entry *Entry
	Kind  string
	Score float64
}

// Match scores every entry against the input and returns the best one
func (d *Dictionary) Match(in core.EnrichInput) (Match, bool) {
	merchant := fold(in.Merchant)
	name := NormalizeName(in.Merchant)
	snippet := fold(in.Snippet)

	var best Match
	for _, e := range d.entries {
		kind, score := matchEntry(e, merchant, name, snippet)
		if kind == "" {
			continue
		}
		if in.SenderDomain != "" && listsDomain(e, in.SenderDomain) {
			score += domainBonus
		}
		score += priceAdjustment(e.TypicalPrice, in.Amount)
		score = clamp(score)

		if best.Entry == nil || score > best.Score {
			best = Match{Entry: e, Kind: kind, Score: score}
		}
	}
	return best, best.Entry != nil
}

func matchEntry(e *Entry, merchant, name, snippet string) (string, float64) {
	if name != "" {
		for _, a := range e.aliases {
			if a == name {
				return MatchAliasExact, scoreAliasExact
			}
		}
	}
	if merchant != "" {
		for _, re := range e.compiled {
			if re.MatchString(merchant) {
				return MatchPattern, scorePattern
			}
		}
	}
	if name != "" {
		for _, a := range e.aliases {
			if len([]rune(a)) < minAliasRunes || len([]rune(name)) < minAliasRunes {
				continue
			}
			if strings.Contains(name, a) || strings.Contains(a, name) {
				return MatchAliasSubstring, scoreAliasSubstring
			}
		}
	}
	if snippet != "" {
		for _, re := range e.compiled {
			if re.MatchString(snippet) {
				return MatchSnippet, scoreSnippet
			}
		}
	}
	return "", 0
}

func listsDomain(e *Entry, domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range e.Domains {
		d = strings.ToLower(d)
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// priceAdjustment compares an amount with the entry's typical price
func priceAdjustment(typical, amount int64) float64 {
	if typical <= 0 || amount <= 0 {
		return 0
	}
	diff := float64(amount-typical) / float64(typical)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 0.1:
		return priceBonus
	case diff <= 0.5:
		return 0
	default:
		return -pricePenalty
	}
}

func clamp(v float64) float64 {
	return max(0, min(v, 1))
}
