package gate

import (
	"regexp"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/domains"
	"go.uber.org/zap"
)

// Rejection reasons
const (
	ReasonBlockDomain         = "block-domain"
	ReasonPromoSubject        = "promo-subject"
	ReasonPromotionsCategory  = "promotions-category"
	ReasonUnsubscribeNonUsage = "list-unsubscribe-nonreceipt"
	ReasonNoPositiveSignal    = "no-positive-signal"
)

// Pass reasons
const (
	ReasonAllowReceipt   = "allow-receipt"
	ReasonAllow          = "allow"
	ReasonReceiptSubject = "receipt-subject"
)

// Fetch priority weights
const (
	WeightAllowReceipt = 100
	WeightAllow        = 80
	WeightReceipt      = 60
)

// DefaultPromotionsLabel is Gmail's promotions category label
const DefaultPromotionsLabel = "CATEGORY_PROMOTIONS"

var (
	// DefaultPromoSubject matches promotional subject lines
	DefaultPromoSubject = regexp.MustCompile(`(?i)キャンペーン|セール|期間限定|限定|お得|クーポン|特典|プレゼント|ポイント\d*倍|新商品|新着|おすすめ|メルマガ|ニュースレター|ご招待|抽選|当選|sale|% ?off|discount|coupon|newsletter|deal`)

	// DefaultReceiptSubject matches usage, billing and receipt subject lines
	DefaultReceiptSubject = regexp.MustCompile(`(?i)ご利用|利用のお知らせ|利用通知|利用明細|ご請求|請求|明細|領収|決済|お支払|支払|購入|注文|速報|引き落とし|receipt|invoice|billing|payment|order|purchase|charged|transaction`)

	// DefaultUnsubscribeHeaders are the headers that mark bulk mail
	DefaultUnsubscribeHeaders = []string{"List-Unsubscribe", "List-Unsubscribe-Post"}
)

// Config holds the gate's lists and patterns. Nil fields use the defaults.
type Config struct {
	BlockDomains       []string
	AllowDomains       []string
	PromotionsLabel    string
	UnsubscribeHeaders []string
	PromoSubject       *regexp.Regexp
	ReceiptSubject     *regexp.Regexp
}

// Gate is the metadata-only pre-filter. It is safe for concurrent use.
type Gate struct {
	block              *domains.Checker
	allow              *domains.Checker
	promotionsLabel    string
	unsubscribeHeaders []string
	promo              *regexp.Regexp
	receipt            *regexp.Regexp
	logger             *zap.Logger
}

// New creates a new gate
func New(cfg Config, logger *zap.Logger) *Gate {
	if cfg.PromotionsLabel == "" {
		cfg.PromotionsLabel = DefaultPromotionsLabel
	}
	if len(cfg.UnsubscribeHeaders) == 0 {
		cfg.UnsubscribeHeaders = DefaultUnsubscribeHeaders
	}
	if cfg.PromoSubject == nil {
		cfg.PromoSubject = DefaultPromoSubject
	}
	if cfg.ReceiptSubject == nil {
		cfg.ReceiptSubject = DefaultReceiptSubject
	}

	return &Gate{
		block:              domains.NewChecker("block", cfg.BlockDomains, logger),
		allow:              domains.NewChecker("allow", cfg.AllowDomains, logger),
		promotionsLabel:    cfg.PromotionsLabel,
		unsubscribeHeaders: cfg.UnsubscribeHeaders,
		promo:              cfg.PromoSubject,
		receipt:            cfg.ReceiptSubject,
		logger:             logger,
	}
}

// Evaluate decides whether a message's body should be fetched. The first matching rule wins.
func (g *Gate) Evaluate(meta *core.MailMeta) core.GateDecision {
	domain := meta.SenderDomain()
	receipt := g.receipt.MatchString(meta.Subject)

	if g.block.Contains(domain) {
		return reject(ReasonBlockDomain)
	}

	if g.promo.MatchString(meta.Subject) && !receipt {
		return reject(ReasonPromoSubject)
	}

	allowed := g.allow.Contains(domain)
	if meta.HasLabel(g.promotionsLabel) && !allowed {
		return reject(ReasonPromotionsCategory)
	}

	if allowed {
		if receipt {
			return pass(ReasonAllowReceipt, WeightAllowReceipt)
		}
		return pass(ReasonAllow, WeightAllow)
	}

	if g.hasUnsubscribe(meta) && !receipt {
		return reject(ReasonUnsubscribeNonUsage)
	}

	if receipt {
		return pass(ReasonReceiptSubject, WeightReceipt)
	}

	return reject(ReasonNoPositiveSignal)
}

func (g *Gate) hasUnsubscribe(meta *core.MailMeta) bool {
	for _, h := range g.unsubscribeHeaders {
		if meta.Header(h) != "" {
			return true
		}
	}
	return false
}

func reject(reason string) core.GateDecision {
	return core.GateDecision{Pass: false, Reason: reason}
}

func pass(reason string, weight int) core.GateDecision {
	return core.GateDecision{Pass: true, Reason: reason, Weight: weight}
}
