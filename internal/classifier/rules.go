package classifier

import (
	"regexp"

	"github.com/s1f10230230/credit-visual-sub000/internal/domains"
)

// Scope says which text a signal rule is counted against
type Scope int

const (
	ScopeSubject Scope = iota
	ScopeBody
	ScopeAll
)

// SignalRule counts pattern matches and turns the count into a bounded bonus
type SignalRule struct {
	Name    string
	Scope   Scope
	Pattern *regexp.Regexp
	Weight  int
	Cap     int
}

// Count returns the number of non-overlapping matches in s
func (r SignalRule) Count(s string) int {
	return len(r.Pattern.FindAllStringIndex(s, -1))
}

// Bonus turns a match count into a score contribution
func (r SignalRule) Bonus(count int) int {
	b := count * r.Weight
	if r.Cap > 0 && b > r.Cap {
		return r.Cap
	}
	return b
}

// AmountRule is one way of writing an amount. Unmarked rules capture numbers that
// only a label identifies as money.
type AmountRule struct {
	Name           string
	Pattern        *regexp.Regexp
	CurrencyMarked bool
}

// MerchantRule captures a merchant name in its first group
type MerchantRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Filter drops label-like captures
	Filter bool
}

type domainWeight struct {
	reason string
	weight int
}

const number = `([0-9０-９][0-9０-９,，]*)`

var (
	usageLanguage = regexp.MustCompile(`(?i)ご利用|利用(?:のお知らせ|通知|明細|金額|額|日|先)?|ご請求|請求|明細|領収|決済|お支払|支払|購入|合計|速報|receipt|invoice|billing|payment|charged|purchase|total|amount`)

	promoLanguage = regexp.MustCompile(`(?i)[★☆♪]|期間限定|キャンペーン|セール|お得|クーポン|特典|プレゼント|ポイント\d*倍|エントリー|抽選|当選|今だけ|限定|新商品|おすすめ|メルマガ|sale|% ?off|discount|coupon|campaign`)

	contextKeywords = regexp.MustCompile(`(?i)合計|総額|金額|ご利用額|利用額|ご利用分|請求額|お支払い?額|支払額|決済額|代金|ご利用|total|amount|billed|charged|price`)

	trailingYear = regexp.MustCompile(`20\d{2}`)

	// dateUnits follow the parts of a written date
	dateUnits = "年月日/-."

	// labelStop matches captures that are field labels rather than merchant names
	labelStop = regexp.MustCompile(`利用|金額|合計|総額|請求|明細|日時|日付|カード|お知らせ|重要|ご案内|番号|会員|承認|速報|支払|決済|注意|確認|税込|税抜|今回|前回|ポイント|残高|予定`)

	numericOnly = regexp.MustCompile(`^[\d\s:/.,\-]+$`)

	merchantTail = regexp.MustCompile(`\s+(?:ご利用|利用|金額|合計|[¥\\]|[0-9][0-9,]*\s*円)`)
)

var defaultTopicalRules = []SignalRule{
	{Name: ReasonSubjectUsage, Scope: ScopeSubject, Pattern: usageLanguage, Weight: 15, Cap: 20},
	{Name: ReasonBodyUsage, Scope: ScopeBody, Pattern: usageLanguage, Weight: 5, Cap: 15},
}

var defaultPromoRule = SignalRule{Name: ReasonPromoContent, Scope: ScopeAll, Pattern: promoLanguage}

var defaultAmountRules = []AmountRule{
	{Name: "yen-prefix", Pattern: regexp.MustCompile(`[¥￥\\]\s*` + number), CurrencyMarked: true},
	{Name: "yen-suffix", Pattern: regexp.MustCompile(number + `\s*円`), CurrencyMarked: true},
	{Name: "jpy-suffix", Pattern: regexp.MustCompile(`(?i)` + number + `\s*JPY`), CurrencyMarked: true},
	{Name: "jpy-prefix", Pattern: regexp.MustCompile(`(?i)JPY\s*` + number), CurrencyMarked: true},
	{Name: "labelled", Pattern: regexp.MustCompile(`(?:ご利用金額|利用金額|ご請求金額|請求金額|お支払い?金額|支払金額|合計金額|合計|金額)\s*[:：]?\s*` + number)},
}

var defaultMerchantRules = []MerchantRule{
	{Name: "labelled", Pattern: regexp.MustCompile(`(?:ご利用先|ご利用内容|ご利用店名|ご利用店舗|ご利用店|利用店舗|利用店名|利用先|加盟店名|加盟店|店舗名|店名)\s*[】\]]?\s*[:：]?\s*([^\n【】■◆]+)`)},
	{Name: "bracketed", Pattern: regexp.MustCompile(`【([^】\n]{1,60})】`), Filter: true},
	{Name: "parenthetical", Pattern: regexp.MustCompile(`[(（]([^()（）\n]{2,40})[)）]`), Filter: true},
	{Name: "inline", Pattern: regexp.MustCompile(`(?m)^([^\d\s¥\\:][^\n:¥\\]{0,39}?)\s*:?\s*[¥\\]?\s*[0-9][0-9,]*\s*円`), Filter: true},
}

var domainWeights = map[string]domainWeight{
	domains.KindIssuer:  {reason: ReasonDomainIssuer, weight: 35},
	domains.KindTrusted: {reason: ReasonDomainTrusted, weight: 20},
	domains.KindKeyword: {reason: ReasonDomainKeyword, weight: 15},
	domains.KindUnknown: {reason: ReasonDomainUnknown, weight: 0},
}

// Confidence contributions of the extraction steps
const (
	amountWeight   = 25
	contextWeight  = 10
	dateWeight     = 5
	merchantWeight = 5
	cardWeight     = 5

	// noAmountCap keeps results without an amount below the medium bucket
	noAmountCap = 39

	highConfidence   = 60
	mediumConfidence = 40

	minAmount = 1
	maxAmount = 10_000_000

	commonRangeMax = 300_000
	largeAmount    = 1_000_000
)
