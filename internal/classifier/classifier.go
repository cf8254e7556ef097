// Package classifier decides whether a decoded mail is a card usage notice and
// extracts the amount, date, merchant and card details from it.
package classifier

import (
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/domains"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
)

// Reason tags attached to a ClassificationResult
const (
	ReasonNoText        = "no-text"
	ReasonDomainIssuer  = "domain-issuer"
	ReasonDomainTrusted = "domain-trusted"
	ReasonDomainKeyword = "domain-keyword"
	ReasonDomainUnknown = "domain-unknown"
	ReasonSubjectUsage  = "subject-usage"
	ReasonBodyUsage     = "body-usage"
	ReasonPromoContent  = "promo-content"
	ReasonAmount        = "amount"
	ReasonAmountContext = "amount-context"
	ReasonNoAmount      = "no-amount"
	ReasonDate          = "date"
	ReasonMerchant      = "merchant"
	ReasonCardLast4     = "card-last4"
	ReasonWallet        = "wallet"
	ReasonLowConfidence = "low-confidence"
)

// Classifier scores messages against a profile. It holds no per-message state and is
// safe for concurrent use.
type Classifier struct {
	trust   *domains.Trust
	profile Profile

	topical       []SignalRule
	promo         SignalRule
	amountRules   []AmountRule
	merchantRules []MerchantRule
}

// Option configures a Classifier
type Option func(*Classifier)

// WithPromoThreshold overrides the profile's promotional match threshold. Values below 1 are ignored.
func WithPromoThreshold(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.profile.PromoThreshold = n
		}
	}
}

// WithMerchantRules puts extra merchant rules ahead of the built-in ones
func WithMerchantRules(rules ...MerchantRule) Option {
	return func(c *Classifier) {
		c.merchantRules = append(append([]MerchantRule{}, rules...), c.merchantRules...)
	}
}

// WithAmountRules adds amount rules after the built-in ones
func WithAmountRules(rules ...AmountRule) Option {
	return func(c *Classifier) {
		c.amountRules = append(append([]AmountRule{}, c.amountRules...), rules...)
	}
}

// New creates a classifier. A nil trust uses the default issuer list.
func New(trust *domains.Trust, profile Profile, opts ...Option) *Classifier {
	if trust == nil {
		trust = domains.NewTrust(nil, nil, nil, nil)
	}
	c := &Classifier{
		trust:         trust,
		profile:       profile,
		topical:       defaultTopicalRules,
		promo:         defaultPromoRule,
		amountRules:   defaultAmountRules,
		merchantRules: defaultMerchantRules,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the profile in effect, including option overrides
func (c *Classifier) Profile() Profile {
	return c.profile
}

// Classify scores one message. It never fails: a message that is not a usage notice
// comes back with OK false and the reasons that disqualified it.
func (c *Classifier) Classify(meta *core.MailMeta, text core.MailText) *core.ClassificationResult {
	res := &core.ClassificationResult{}

	body := mimetext.Flatten(text)
	if body == "" {
		res.Reasons = []string{ReasonNoText}
		return res
	}

	var subject, domain string
	if meta != nil {
		subject = mimetext.Normalize(meta.Subject)
		domain = meta.SenderDomain()
	}

	score := 0

	tm := c.trust.Classify(domain)
	dw := domainWeights[tm.Kind]
	score += dw.weight
	res.Reasons = append(res.Reasons, dw.reason)
	res.Card.Issuer = tm.Issuer

	for _, rule := range c.topical {
		if n := rule.Count(scoped(rule.Scope, subject, body)); n > 0 {
			score += rule.Bonus(n)
			res.Reasons = append(res.Reasons, rule.Name)
		}
	}

	if n := c.promo.Count(scoped(c.promo.Scope, subject, body)); n > c.profile.PromoThreshold {
		score -= c.profile.PromoPenalty
		res.Reasons = append(res.Reasons, c.promo.Name)
	}

	best, ok := selectAmount(extractAmounts(body, c.profile, c.amountRules), c.profile.AmountFloor)
	if !ok {
		res.Confidence = clamp(min(score, noAmountCap))
		res.Trust = bucket(res.Confidence)
		res.Reasons = append(res.Reasons, ReasonNoAmount)
		return res
	}

	res.Amount = best.Value
	res.Currency = "JPY"
	score += amountWeight
	res.Reasons = append(res.Reasons, ReasonAmount)
	if best.Context {
		score += contextWeight
		res.Reasons = append(res.Reasons, ReasonAmountContext)
	}

	if date := ExtractDate(body); date != "" {
		res.Date = date
		score += dateWeight
		res.Reasons = append(res.Reasons, ReasonDate)
	}

	if merchant := extractMerchant(body, c.merchantRules); merchant != "" {
		res.Merchant = merchant
		score += merchantWeight
		res.Reasons = append(res.Reasons, ReasonMerchant)
	}

	hints := ExtractCardHints(body)
	if hints.Last4 != "" {
		res.Card.Last4 = hints.Last4
		score += cardWeight
		res.Reasons = append(res.Reasons, ReasonCardLast4)
	}
	res.Card.TokenLast4 = hints.TokenLast4
	if hints.Wallet != "" {
		res.Card.Wallet = hints.Wallet
		res.Reasons = append(res.Reasons, ReasonWallet)
	}

	res.Confidence = clamp(score)
	res.Trust = bucket(res.Confidence)

	if res.Confidence < c.profile.MinConfidence {
		res.Reasons = append(res.Reasons, ReasonLowConfidence)
		return res
	}

	res.OK = true
	return res
}

func scoped(scope Scope, subject, body string) string {
	switch scope {
	case ScopeSubject:
		return subject
	case ScopeBody:
		return body
	default:
		return subject + "\n" + body
	}
}

func clamp(score int) int {
	return max(0, min(score, 100))
}

func bucket(confidence int) core.TrustLevel {
	switch {
	case confidence >= highConfidence:
		return core.TrustHigh
	case confidence >= mediumConfidence:
		return core.TrustMedium
	default:
		return core.TrustLow
	}
}
