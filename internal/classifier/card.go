package classifier

import (
	"regexp"
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

// tokenPrefix marks the last digits of a wallet token rather than of the card
const tokenPrefix = "トークン"

var last4Patterns = []*regexp.Regexp{
	regexp.MustCompile(`下\s*4\s*桁\s*[:：]?\s*(\d{4})`),
	regexp.MustCompile(`末尾\s*[:：]?\s*(\d{4})`),
	regexp.MustCompile(`[*＊xX×●]{4}[\s\-]?(\d{4})\b`),
	regexp.MustCompile(`(?i)ending\s+(?:in|with)\s+(\d{4})`),
	regexp.MustCompile(`カード番号[^\d\n]*(\d{4})`),
}

var tokenPattern = regexp.MustCompile(tokenPrefix + `末尾\s*[:：]?\s*(\d{4})`)

var wallets = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Apple Pay", regexp.MustCompile(`(?i)apple\s*pay|アップルペイ`)},
	{"Google Pay", regexp.MustCompile(`(?i)google\s*pay|グーグルペイ`)},
	{"QUICPay", regexp.MustCompile(`(?i)quic\s*pay`)},
	{"iD", regexp.MustCompile(`(?:^|[^A-Za-z])iD(?:[^A-Za-z]|$)`)},
}

// ExtractCardHints finds the masked card number, wallet token and payment wallet a notice
// mentions. The issuer comes from the sender domain and is not set here.
func ExtractCardHints(body string) core.CardHints {
	var hints core.CardHints
	hints.Last4 = cardLast4(body)
	if m := tokenPattern.FindStringSubmatch(body); m != nil {
		hints.TokenLast4 = m[1]
	}
	for _, w := range wallets {
		if w.pattern.MatchString(body) {
			hints.Wallet = w.name
			break
		}
	}
	return hints
}

func cardLast4(body string) string {
	for _, p := range last4Patterns {
		for _, m := range p.FindAllStringSubmatchIndex(body, -1) {
			if strings.HasSuffix(body[:m[0]], tokenPrefix) {
				continue
			}
			return body[m[2]:m[3]]
		}
	}
	return ""
}
