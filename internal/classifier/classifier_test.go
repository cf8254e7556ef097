package classifier

import (
	"reflect"
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

func classify(t *testing.T, p Profile, from, subject, body string, opts ...Option) *core.ClassificationResult {
	t.Helper()
	c := New(nil, p, opts...)
	return c.Classify(&core.MailMeta{ID: "m1", From: from, Subject: subject}, core.MailText{Plain: body})
}

func TestClassifyUsageNotice(t *testing.T) {
	res := classify(t, Balanced, "info@shop.example", "カード利用のお知らせ", "いつもありがとうございます。\n合計　1,000 円")

	if !res.OK {
		t.Fatalf("expected accepted result, got reasons %v", res.Reasons)
	}
	if res.Amount != 1000 {
		t.Errorf("Amount = %d, want 1000", res.Amount)
	}
	if res.Currency != "JPY" {
		t.Errorf("Currency = %q, want JPY", res.Currency)
	}
	if res.Trust < core.TrustMedium {
		t.Errorf("Trust = %s, want at least medium (confidence %d)", res.Trust, res.Confidence)
	}
	if !res.HasReason(ReasonDomainUnknown) || !res.HasReason(ReasonAmountContext) {
		t.Errorf("Reasons = %v", res.Reasons)
	}
}

func TestClassifyIssuerNotice(t *testing.T) {
	body := "JCBカードをご利用いただきありがとうございます。\n" +
		"【ご利用日時】 2025/08/20 12:34\n" +
		"【ご利用金額】　159円\n" +
		"【ご利用先】　ロケツトナウ\n"
	res := classify(t, Balanced, "JCB <info@qa.jcb.co.jp>", "JCBカード／ショッピングご利用のお知らせ", body)

	if !res.OK {
		t.Fatalf("expected accepted result, got reasons %v", res.Reasons)
	}
	if res.Amount != 159 {
		t.Errorf("Amount = %d, want 159", res.Amount)
	}
	if res.Merchant != "ロケツトナウ" {
		t.Errorf("Merchant = %q, want ロケツトナウ", res.Merchant)
	}
	if res.Date != "2025-08-20 12:34" {
		t.Errorf("Date = %q", res.Date)
	}
	if res.Card.Issuer != "JCB" {
		t.Errorf("Issuer = %q, want JCB", res.Card.Issuer)
	}
	if res.Trust != core.TrustHigh {
		t.Errorf("Trust = %s, want high", res.Trust)
	}
	if res.Reasons[0] != ReasonDomainIssuer {
		t.Errorf("first reason = %q, want %q", res.Reasons[0], ReasonDomainIssuer)
	}
}

func TestClassifyStatementNeverReadsYear(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    int64
	}{
		{"year before label", "", "2025年08月ご請求金額が確定しました。請求金額: 12,345円", 12345},
		{"year right after label", "ご請求金額のお知らせ", "ご請求金額 2025年08月分\nお支払額 350,000円", 350000},
		{"slashed date after label", "", "合計 2025/08/10\n合計 4,800円", 4800},
	}

	for _, tt := range tests {
		for _, p := range []Profile{Strict, Balanced, Flexible} {
			res := classify(t, p, "info@shop.example", tt.subject, tt.body)
			if res.Amount != 0 && res.Amount != tt.want {
				t.Errorf("%s/%s: Amount = %d, want %d or none", tt.name, p.Name, res.Amount, tt.want)
			}
			for _, c := range ExtractAmounts(tt.body, p) {
				if c.Value == 2025 {
					t.Errorf("%s/%s: 2025 extracted as an amount candidate", tt.name, p.Name)
				}
			}
		}
	}
}

func TestClassifyPromotionalPenalty(t *testing.T) {
	subject := "カードご利用のお知らせ"
	plain := "今回のご利用：1,200円"
	promo := "★期間限定キャンペーン★\n" + plain

	clean := classify(t, Balanced, "info@shop.example", subject, plain)
	noisy := classify(t, Balanced, "info@shop.example", subject, promo)

	if !noisy.OK || noisy.Amount != 1200 {
		t.Fatalf("promotional notice: OK=%v Amount=%d reasons=%v", noisy.OK, noisy.Amount, noisy.Reasons)
	}
	if !clean.OK || clean.Amount != 1200 {
		t.Fatalf("plain notice: OK=%v Amount=%d reasons=%v", clean.OK, clean.Amount, clean.Reasons)
	}
	if noisy.Confidence >= clean.Confidence {
		t.Errorf("promotional confidence %d not below plain confidence %d", noisy.Confidence, clean.Confidence)
	}
	if !noisy.HasReason(ReasonPromoContent) {
		t.Errorf("Reasons = %v, want %s", noisy.Reasons, ReasonPromoContent)
	}

	// a higher threshold tolerates the same copy
	tolerant := classify(t, Balanced, "info@shop.example", subject, promo, WithPromoThreshold(5))
	if tolerant.Confidence != clean.Confidence {
		t.Errorf("threshold 5: confidence %d, want %d", tolerant.Confidence, clean.Confidence)
	}
}

func TestClassifyEmptyBody(t *testing.T) {
	for _, text := range []core.MailText{{}, {Plain: " \n\t", HTML: "  "}} {
		res := New(nil, Balanced).Classify(&core.MailMeta{From: "info@jcb.co.jp"}, text)
		if res.OK || res.Confidence != 0 {
			t.Errorf("OK=%v Confidence=%d, want rejected with 0", res.OK, res.Confidence)
		}
		if !reflect.DeepEqual(res.Reasons, []string{ReasonNoText}) {
			t.Errorf("Reasons = %v, want [%s]", res.Reasons, ReasonNoText)
		}
	}
}

func TestClassifyHTMLOnly(t *testing.T) {
	html := `<html><body><table><tr><td>ご利用金額</td><td>¥3,980</td></tr></table></body></html>`
	res := New(nil, Balanced).Classify(&core.MailMeta{From: "info@shop.example"}, core.MailText{HTML: html})

	if !res.OK || res.Amount != 3980 {
		t.Errorf("OK=%v Amount=%d reasons=%v", res.OK, res.Amount, res.Reasons)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := New(nil, Balanced)
	meta := &core.MailMeta{From: "JCB <info@qa.jcb.co.jp>", Subject: "ご利用のお知らせ"}
	text := core.MailText{Plain: "【ご利用金額】 2,500円\n【ご利用先】 Amazon.co.jp\nApple Pay\nカード末尾 1234"}

	first := c.Classify(meta, text)
	second := c.Classify(meta, text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if first.Card.Last4 != "1234" || first.Card.Wallet != "Apple Pay" {
		t.Errorf("Card = %+v", first.Card)
	}
}

func TestProfiles(t *testing.T) {
	t.Run("strict needs context", func(t *testing.T) {
		res := classify(t, Strict, "info@shop.example", "", "¥500")
		if res.OK || res.RejectReason() != ReasonNoAmount {
			t.Errorf("strict: OK=%v reasons=%v", res.OK, res.Reasons)
		}
		res = classify(t, Balanced, "info@shop.example", "", "¥500")
		if !res.OK || res.Amount != 500 {
			t.Errorf("balanced: OK=%v Amount=%d reasons=%v", res.OK, res.Amount, res.Reasons)
		}
	})

	t.Run("strict rejects low confidence", func(t *testing.T) {
		res := classify(t, Strict, "info@shop.example", "", "金額 ¥500")
		if res.OK || res.RejectReason() != ReasonLowConfidence {
			t.Errorf("strict: OK=%v confidence=%d reasons=%v", res.OK, res.Confidence, res.Reasons)
		}
		if res.Amount != 500 {
			t.Errorf("strict: Amount = %d, want 500 kept on rejection", res.Amount)
		}
		res = classify(t, Balanced, "info@shop.example", "", "金額 ¥500")
		if !res.OK {
			t.Errorf("balanced: reasons=%v", res.Reasons)
		}
	})

	t.Run("no amount stays below medium", func(t *testing.T) {
		res := classify(t, Flexible, "info@jcb.co.jp", "ご利用のお知らせ", "ご利用ありがとうございます。明細をご確認ください。")
		if res.OK || res.RejectReason() != ReasonNoAmount {
			t.Fatalf("OK=%v reasons=%v", res.OK, res.Reasons)
		}
		if res.Confidence > noAmountCap || res.Trust != core.TrustLow {
			t.Errorf("Confidence=%d Trust=%s", res.Confidence, res.Trust)
		}
	})

	t.Run("by name", func(t *testing.T) {
		for name, want := range map[string]string{"": "balanced", "Strict": "strict", "flexible": "flexible", "simple": "balanced"} {
			p, err := ProfileByName(name)
			if err != nil || p.Name != want {
				t.Errorf("ProfileByName(%q) = %q, %v", name, p.Name, err)
			}
		}
		if _, err := ProfileByName("lenient"); err == nil {
			t.Error("expected error for unknown profile")
		}
	})
}

func TestNormalizeAmount(t *testing.T) {
	for _, s := range []string{"1234567", "1,234,567", "１２３４５６７", "１，２３４，５６７", "1,２34,５67", "1 234 567", "1，234567"} {
		got, ok := NormalizeAmount(s)
		if !ok || got != 1234567 {
			t.Errorf("NormalizeAmount(%q) = %d, %v", s, got, ok)
		}
	}
	for _, s := range []string{"", ",", "12a", "¥12", "1.5"} {
		if _, ok := NormalizeAmount(s); ok {
			t.Errorf("NormalizeAmount(%q) accepted", s)
		}
	}
}

func TestTrailingYearPenalty(t *testing.T) {
	for _, p := range []Profile{Strict, Balanced, Flexible} {
		withYear := ExtractAmounts("¥1,000 2025年", p)
		without := ExtractAmounts("¥1,000 です", p)
		if len(withYear) != 1 || len(without) != 1 {
			t.Fatalf("%s: candidates %v / %v", p.Name, withYear, without)
		}
		if withYear[0].Score >= without[0].Score {
			t.Errorf("%s: score with trailing year %d, without %d", p.Name, withYear[0].Score, without[0].Score)
		}
	}
}

func TestExtractAmounts(t *testing.T) {
	t.Run("implausible amounts are discarded", func(t *testing.T) {
		if got := ExtractAmounts("ご利用金額: ¥12,000,000", Flexible); len(got) != 0 {
			t.Errorf("got %v, want none", got)
		}
		res := classify(t, Flexible, "info@jcb.co.jp", "ご利用のお知らせ", "ご利用金額: ¥12,000,000")
		if res.OK || res.RejectReason() != ReasonNoAmount {
			t.Errorf("OK=%v reasons=%v", res.OK, res.Reasons)
		}
	})

	t.Run("ties go to the currency-marked number", func(t *testing.T) {
		got := ExtractAmounts("合計 500 / ¥500", Balanced)
		if len(got) != 2 {
			t.Fatalf("got %v, want 2 candidates", got)
		}
		if got[0].Score != got[1].Score {
			t.Fatalf("scores %d and %d should tie", got[0].Score, got[1].Score)
		}
		if !got[0].CurrencyMarked || got[0].Rule != "yen-prefix" {
			t.Errorf("best = %+v, want the ¥ candidate", got[0])
		}
	})

	t.Run("full-width digits", func(t *testing.T) {
		got := ExtractAmounts("ご利用金額 ￥１２，８００", Balanced)
		if len(got) == 0 || got[0].Value != 12800 || !got[0].Context {
			t.Errorf("got %v", got)
		}
	})

	t.Run("JPY markers", func(t *testing.T) {
		for _, body := range []string{"total 4,500 JPY", "total JPY 4,500"} {
			got := ExtractAmounts(body, Balanced)
			if len(got) == 0 || got[0].Value != 4500 || !got[0].CurrencyMarked {
				t.Errorf("%q: got %v", body, got)
			}
		}
	})
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"ご利用日：2025年8月20日(水) 9時05分", "2025-08-20 09:05"},
		{"ご利用日 2025.08.01", "2025-08-01"},
		{"2025-02-30 のあと 2025-03-01", "2025-03-01"},
		{"1899/01/01", ""},
		{"日付なし", ""},
	}
	for _, tt := range tests {
		if got := ExtractDate(tt.body); got != tt.want {
			t.Errorf("ExtractDate(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestExtractMerchant(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"labelled", "ご利用店名：Amazon.co.jp\nご利用金額：1,000円", "Amazon.co.jp"},
		{"bracketed", "【Netflix】月額プランのお支払い", "Netflix"},
		{"bracketed labels skipped", "【ご利用金額】 159円", ""},
		{"parenthetical", "お支払い（スターバックス コーヒー）", "スターバックス コーヒー"},
		{"inline", "スターバックス 580円", "スターバックス"},
		{"labelled wins over bracketed", "【速報】\nご利用先: ロケツトナウ", "ロケツトナウ"},
		{"usage detail label", "ご利用内容：ANA SKY SHOP\nご利用金額：23,456円", "ANA SKY SHOP"},
		{"shop label", "ご利用店舗：ヨドバシカメラ", "ヨドバシカメラ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMerchant(tt.body); got != tt.want {
				t.Errorf("ExtractMerchant() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractCardHints(t *testing.T) {
	tests := []struct {
		body string
		want core.CardHints
	}{
		{"カード番号 ****-****-****-4321", core.CardHints{Last4: "4321"}},
		{"カード末尾 5678 Apple Payでのご利用", core.CardHints{Last4: "5678", Wallet: "Apple Pay"}},
		{"iD でのお支払い", core.CardHints{Wallet: "iD"}},
		{"Card ending in 9012", core.CardHints{Last4: "9012"}},
		{"ご利用ありがとうございます", core.CardHints{}},
		{"カード番号　下4桁 1111", core.CardHints{Last4: "1111"}},
		{"末尾 2222", core.CardHints{Last4: "2222"}},
		{"**** 3333", core.CardHints{Last4: "3333"}},
		{"＊＊＊＊ 4444", core.CardHints{Last4: "4444"}},
		{"XXXX 5555", core.CardHints{Last4: "5555"}},
		{"カード番号：6666", core.CardHints{Last4: "6666"}},
		{"番号は伏せています", core.CardHints{}},
		{"トークン末尾 1111\nカード末尾 4321\nアップルペイ", core.CardHints{Last4: "4321", TokenLast4: "1111", Wallet: "Apple Pay"}},
		{"トークン末尾 2468 グーグルペイ", core.CardHints{TokenLast4: "2468", Wallet: "Google Pay"}},
	}
	for _, tt := range tests {
		if got := ExtractCardHints(tt.body); got != tt.want {
			t.Errorf("ExtractCardHints(%q) = %+v, want %+v", tt.body, got, tt.want)
		}
	}
}

func TestClassifyIssuerFormats(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		subject  string
		body     string
		amount   int64
		merchant string
		date     string
		card     core.CardHints
	}{
		{
			name:    "mufg",
			from:    "notice@mufg-card.com",
			subject: "【MUFGカード】ご利用のお知らせ",
			body: "MUFGカードをご利用いただきありがとうございます。\n" +
				"ご利用日：2024年1月15日\n" +
				"ご利用内容：ANA SKY SHOP\n" +
				"ご利用金額：23,456円\n" +
				"カード番号下4桁 6543\n",
			amount:   23456,
			merchant: "ANA SKY SHOP",
			date:     "2024-01-15",
			card:     core.CardHints{Issuer: "三菱UFJニコス", Last4: "6543"},
		},
		{
			name:    "epos",
			from:    "alert@01epos.jp",
			subject: "エポスカード ご利用のお知らせ",
			body: "エポスカードのご利用がありました。\n" +
				"ご利用日時：2024年2月10日 14:20\n" +
				"ご利用店舗：ヨドバシカメラ\n" +
				"ご利用金額：8,900円\n" +
				"カード末尾 4321\n" +
				"トークン末尾 1111\n" +
				"アップルペイでのお支払い\n",
			amount:   8900,
			merchant: "ヨドバシカメラ",
			date:     "2024-02-10 14:20",
			card:     core.CardHints{Issuer: "エポスカード", Last4: "4321", TokenLast4: "1111", Wallet: "Apple Pay"},
		},
		{
			name:    "smbc",
			from:    "notice@vpass.ne.jp",
			subject: "カードご利用のお知らせ",
			body: "三井住友カードをご利用いただきありがとうございます。\n" +
				"ご利用日：2024/03/05 10:11\n" +
				"ご利用先：AMAZON.CO.JP\n" +
				"ご利用金額：45,678円\n" +
				"カード番号末尾 9876\n",
			amount:   45678,
			merchant: "AMAZON.CO.JP",
			date:     "2024-03-05 10:11",
			card:     core.CardHints{Issuer: "三井住友カード", Last4: "9876"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(t, Balanced, tt.from, tt.subject, tt.body)
			if !res.OK {
				t.Fatalf("expected accepted result, got reasons %v", res.Reasons)
			}
			if res.Amount != tt.amount {
				t.Errorf("Amount = %d, want %d", res.Amount, tt.amount)
			}
			if res.Merchant != tt.merchant {
				t.Errorf("Merchant = %q, want %q", res.Merchant, tt.merchant)
			}
			if res.Date != tt.date {
				t.Errorf("Date = %q, want %q", res.Date, tt.date)
			}
			if res.Card != tt.card {
				t.Errorf("Card = %+v, want %+v", res.Card, tt.card)
			}
		})
	}
}
