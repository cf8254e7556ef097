package domains

import (
	"strings"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// Issuer is a card issuer's mail domain and display name
type Issuer struct {
	Domain string
	Name   string
}

// DefaultIssuers are the primary issuers whose notices carry the highest trust
var DefaultIssuers = []Issuer{
	{Domain: "jcb.co.jp", Name: "JCB"},
	{Domain: "smbc-card.com", Name: "三井住友カード"},
	{Domain: "vpass.ne.jp", Name: "三井住友カード"},
	{Domain: "rakuten-card.co.jp", Name: "楽天カード"},
	{Domain: "aeon.co.jp", Name: "イオンカード"},
	{Domain: "saisoncard.co.jp", Name: "セゾンカード"},
	{Domain: "mufg.jp", Name: "三菱UFJニコス"},
	{Domain: "mufg-card.com", Name: "三菱UFJニコス"},
	{Domain: "nicos.co.jp", Name: "三菱UFJニコス"},
	{Domain: "dc-card.com", Name: "三菱UFJニコス"},
	{Domain: "epos-card.co.jp", Name: "エポスカード"},
	{Domain: "eposcard.co.jp", Name: "エポスカード"},
	{Domain: "01epos.jp", Name: "エポスカード"},
	{Domain: "paypay-card.co.jp", Name: "PayPayカード"},
	{Domain: "aplus.co.jp", Name: "アプラス"},
	{Domain: "orico.co.jp", Name: "オリコ"},
	{Domain: "americanexpress.com", Name: "American Express"},
}

// DefaultDomainKeywords mark a domain as card related without naming a known issuer
var DefaultDomainKeywords = []string{"card", "credit", "pay", "bank"}

// Trust match kinds
const (
	KindIssuer  = "issuer"
	KindTrusted = "trusted"
	KindKeyword = "keyword"
	KindUnknown = "unknown"
)

// TrustMatch is the trust classification of one sender domain
type TrustMatch struct {
	Level  core.TrustLevel
	Kind   string
	Match  MatchKind
	Issuer string
}

// Trust classifies sender domains. It is read-only after construction.
type Trust struct {
	issuers     *Checker
	trusted     *Checker
	issuerNames map[string]string
	keywords    []string
}

// NewTrust creates a trust classifier from issuer and trusted-merchant lists
func NewTrust(issuers []Issuer, trusted []string, keywords []string, logger *zap.Logger) *Trust {
	if issuers == nil {
		issuers = DefaultIssuers
	}
	if keywords == nil {
		keywords = DefaultDomainKeywords
	}

	names := make(map[string]string, len(issuers))
	issuerDomains := make([]string, 0, len(issuers))
	for _, is := range issuers {
		d := strings.ToLower(strings.TrimSpace(is.Domain))
		if d == "" {
			continue
		}
		names[d] = is.Name
		issuerDomains = append(issuerDomains, d)
	}

	return &Trust{
		issuers:     NewChecker("issuers", issuerDomains, logger),
		trusted:     NewChecker("trusted", trusted, logger),
		issuerNames: names,
		keywords:    keywords,
	}
}

// Classify maps a sender domain to a trust level. Issuer matches always outrank
// trusted-list matches, which outrank keyword matches.
func (t *Trust) Classify(domain string) TrustMatch {
	if kind, entry := t.issuers.Match(domain); kind != MatchNone {
		return TrustMatch{Level: core.TrustHigh, Kind: KindIssuer, Match: kind, Issuer: t.issuerNames[entry]}
	}
	if kind, _ := t.trusted.Match(domain); kind != MatchNone {
		return TrustMatch{Level: core.TrustMedium, Kind: KindTrusted, Match: kind}
	}

	lower := strings.ToLower(domain)
	for _, kw := range t.keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return TrustMatch{Level: core.TrustMedium, Kind: KindKeyword}
		}
	}
	return TrustMatch{Level: core.TrustLow, Kind: KindUnknown}
}

// ParseIssuers reads "domain=Name" entries. Entries without a name use the domain.
func ParseIssuers(entries []string) []Issuer {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Issuer, 0, len(entries))
	for _, e := range entries {
		domain, name, _ := strings.Cut(e, "=")
		domain = strings.TrimSpace(domain)
		if domain == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = domain
		}
		out = append(out, Issuer{Domain: domain, Name: name})
	}
	return out
}
