package classifier

import (
	"strings"
	"unicode/utf8"
)

const maxMerchantRunes = 60

// ExtractMerchant returns the merchant named in body using the built-in rules
func ExtractMerchant(body string) string {
	return extractMerchant(body, defaultMerchantRules)
}

// extractMerchant tries the rules in order and returns the first usable capture
func extractMerchant(body string, rules []MerchantRule) string {
	for _, rule := range rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(body, -1) {
			name := cleanMerchant(m[1])
			if name == "" {
				continue
			}
			if rule.Filter && (labelStop.MatchString(name) || numericOnly.MatchString(name)) {
				continue
			}
			return name
		}
	}
	return ""
}

func cleanMerchant(s string) string {
	s = strings.TrimSpace(s)
	if loc := merchantTail.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Trim(s, " :：-・\t")

	if utf8.RuneCountInString(s) > maxMerchantRunes {
		s = string([]rune(s)[:maxMerchantRunes])
		s = strings.TrimSpace(s)
	}
	if numericOnly.MatchString(s) {
		return ""
	}
	return s
}
