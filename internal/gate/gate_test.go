package gate

import (
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

func newTestGate() *Gate {
	return New(Config{
		BlockDomains: []string{"spam.example", "jcb.co.jp.evil"},
		AllowDomains: []string{"jcb.co.jp", "qa.example-store.jp"},
	}, nil)
}

func TestEvaluate(t *testing.T) {
	g := newTestGate()

	tests := []struct {
		name       string
		meta       core.MailMeta
		wantPass   bool
		wantReason string
		wantWeight int
	}{
		{
			name:       "blocked domain wins over receipt subject",
			meta:       core.MailMeta{From: "info@mail.spam.example", Subject: "ご利用のお知らせ"},
			wantReason: ReasonBlockDomain,
		},
		{
			name:       "promotional subject",
			meta:       core.MailMeta{From: "news@shop.example", Subject: "夏のセール開催中"},
			wantReason: ReasonPromoSubject,
		},
		{
			name:       "promotional subject that is also a receipt",
			meta:       core.MailMeta{From: "news@shop.example", Subject: "キャンペーン適用 ご利用のお知らせ"},
			wantPass:   true,
			wantReason: ReasonReceiptSubject,
			wantWeight: WeightReceipt,
		},
		{
			name:       "promotions label on unknown sender",
			meta:       core.MailMeta{From: "shop@store.example", Subject: "ご利用のお知らせ", Labels: []string{"INBOX", "CATEGORY_PROMOTIONS"}},
			wantReason: ReasonPromotionsCategory,
		},
		{
			name:       "allow-listed sender bypasses promotions label",
			meta:       core.MailMeta{From: "JCB <info@qa.jcb.co.jp>", Subject: "ショッピングご利用のお知らせ", Labels: []string{"CATEGORY_PROMOTIONS"}},
			wantPass:   true,
			wantReason: ReasonAllowReceipt,
			wantWeight: WeightAllowReceipt,
		},
		{
			name:       "allow-listed sender without receipt subject",
			meta:       core.MailMeta{From: "info@jcb.co.jp", Subject: "重要なお知らせ"},
			wantPass:   true,
			wantReason: ReasonAllow,
			wantWeight: WeightAllow,
		},
		{
			name:       "bulk mail without receipt subject",
			meta:       core.MailMeta{From: "news@store.example", Subject: "今週のニュース", Headers: map[string]string{"list-unsubscribe": "<mailto:u@store.example>"}},
			wantReason: ReasonUnsubscribeNonUsage,
		},
		{
			name:       "bulk mail with receipt subject",
			meta:       core.MailMeta{From: "order@store.example", Subject: "ご注文の領収書", Headers: map[string]string{"List-Unsubscribe": "<mailto:u@store.example>"}},
			wantPass:   true,
			wantReason: ReasonReceiptSubject,
			wantWeight: WeightReceipt,
		},
		{
			name:       "no signal",
			meta:       core.MailMeta{From: "friend@example.com", Subject: "週末の予定"},
			wantReason: ReasonNoPositiveSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Evaluate(&tt.meta)
			if got.Pass != tt.wantPass || got.Reason != tt.wantReason || got.Weight != tt.wantWeight {
				t.Errorf("Evaluate() = %+v, want pass=%v reason=%s weight=%d", got, tt.wantPass, tt.wantReason, tt.wantWeight)
			}
		})
	}
}

func TestEvaluateIsStable(t *testing.T) {
	g := newTestGate()
	meta := &core.MailMeta{From: "info@jcb.co.jp", Subject: "カード利用のお知らせ"}

	first := g.Evaluate(meta)
	for i := 0; i < 3; i++ {
		if got := g.Evaluate(meta); got != first {
			t.Fatalf("Evaluate() changed from %+v to %+v", first, got)
		}
	}
}
