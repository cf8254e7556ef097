package classifier

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// NormalizeAmount parses an amount token written with half- or full-width digits and
// any comma separators
func NormalizeAmount(s string) (int64, bool) {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= '０' && r <= '９':
			sb.WriteRune('0' + (r - '０'))
		case r == ',' || r == '，' || unicode.IsSpace(r):
		default:
			return 0, false
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(sb.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtractAmounts finds and scores every plausible amount in body, best first
func ExtractAmounts(body string, p Profile) []core.AmountCandidate {
	return extractAmounts(body, p, defaultAmountRules)
}

func extractAmounts(body string, p Profile, rules []AmountRule) []core.AmountCandidate {
	byOffset := make(map[int]int)
	var out []core.AmountCandidate

	for _, rule := range rules {
		for _, m := range rule.Pattern.FindAllStringSubmatchIndex(body, -1) {
			start, end := m[2], m[3]
			if start < 0 {
				continue
			}
			if !rule.CurrencyMarked && currencyMarked(body, start, end) {
				// a marked rule sees the same number
				continue
			}
			if !rule.CurrencyMarked && dateUnitFollows(body, end) {
				continue
			}

			raw := body[start:end]
			value, ok := NormalizeAmount(raw)
			if !ok || value < minAmount || value > maxAmount {
				continue
			}

			c := core.AmountCandidate{
				Raw:            raw,
				Offset:         utf8.RuneCountInString(body[:start]),
				Value:          value,
				CurrencyMarked: rule.CurrencyMarked,
				Context:        hasContext(body, start, end, p.ContextRadius),
				Rule:           rule.Name,
			}
			c.Score = scoreAmount(body, m[1], value, c.Context, p)

			if i, seen := byOffset[start]; seen {
				if !out[i].CurrencyMarked && c.CurrencyMarked {
					out[i] = c
				}
				continue
			}
			byOffset[start] = len(out)
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].CurrencyMarked != out[j].CurrencyMarked {
			return out[i].CurrencyMarked
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

// scoreAmount scores a match ending at body[end]
func scoreAmount(body string, end int, value int64, context bool, p Profile) int {
	score := 0
	if yearFollows(body, end) {
		score -= p.YearPenalty
	}
	if context {
		score += p.ContextBonus
	}
	if value >= minAmount && value <= commonRangeMax {
		score += p.RangeBonus
	}
	if value > largeAmount {
		score -= p.LargePenalty
	}
	return score
}

// yearFollows reports whether the next six non-space characters contain a 20xx year
func yearFollows(body string, end int) bool {
	var sb strings.Builder
	n := 0
	for _, r := range body[end:] {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
		n++
		if n == 6 {
			break
		}
	}
	return trailingYear.MatchString(sb.String())
}

// dateUnitFollows reports whether the number ending at body[end] is part of a date
func dateUnitFollows(body string, end int) bool {
	for _, r := range body[end:] {
		if unicode.IsSpace(r) {
			continue
		}
		return strings.ContainsRune(dateUnits, r)
	}
	return false
}

func hasContext(body string, start, end, radius int) bool {
	before, after := window(body, start, end, radius)
	return contextKeywords.MatchString(before) || contextKeywords.MatchString(after)
}

// window returns up to radius runes before start and after end
func window(body string, start, end, radius int) (string, string) {
	from := start
	for i := 0; i < radius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(body[:from])
		from -= size
	}
	to := end
	for i := 0; i < radius && to < len(body); i++ {
		_, size := utf8.DecodeRuneInString(body[to:])
		to += size
	}
	return body[from:start], body[end:to]
}

func currencyMarked(body string, start, end int) bool {
	after := strings.TrimLeftFunc(body[end:], unicode.IsSpace)
	if strings.HasPrefix(after, "円") || strings.HasPrefix(strings.ToUpper(after), "JPY") {
		return true
	}
	before := strings.TrimRightFunc(body[:start], unicode.IsSpace)
	return strings.HasSuffix(before, "¥") || strings.HasSuffix(before, "￥") || strings.HasSuffix(before, `\`)
}

// selectAmount returns the best candidate if it clears the floor
func selectAmount(candidates []core.AmountCandidate, floor int) (core.AmountCandidate, bool) {
	if len(candidates) == 0 || candidates[0].Score < floor {
		return core.AmountCandidate{}, false
	}
	return candidates[0], true
}
