package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

type fakeCategorizer struct {
	answer *core.MerchantCategory
	err    error
	calls  int
}

func (f *fakeCategorizer) CategorizeMerchant(ctx context.Context, q *core.MerchantQuery) (*core.MerchantCategory, error) {
	f.calls++
	return f.answer, f.err
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"株式会社メルカリ", "メルカリ"},
		{"ﾒﾙｶﾘ(株)", "メルカリ"},
		{"NETFLIX.COM", "netflix com"},
		{"Acme Co., Ltd.", "acme"},
		{"  Disney+  ", "disney+"},
		{"ＡＭＡＺＯＮ　ＰＲＩＭＥ", "amazon prime"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDictionaryMatch(t *testing.T) {
	d := DefaultDictionary()

	tests := []struct {
		name      string
		in        core.EnrichInput
		wantEntry string
		wantKind  string
		wantScore float64
	}{
		{
			name:      "alias exact",
			in:        core.EnrichInput{Merchant: "AMAZON PRIME"},
			wantEntry: "Amazon Prime",
			wantKind:  MatchAliasExact,
			wantScore: 0.95,
		},
		{
			name:      "pattern with typical price",
			in:        core.EnrichInput{Merchant: "NETFLIX.COM", Amount: 1490},
			wantEntry: "Netflix",
			wantKind:  MatchPattern,
			wantScore: 1.0,
		},
		{
			name:      "pattern far from typical price",
			in:        core.EnrichInput{Merchant: "SPOTIFY P1234", Amount: 9800},
			wantEntry: "Spotify",
			wantKind:  MatchPattern,
			wantScore: 0.75,
		},
		{
			name:      "snippet only with sender domain",
			in:        core.EnrichInput{Snippet: "Adobe Creative Cloud のご請求", SenderDomain: "mail.adobe.com"},
			wantEntry: "Adobe",
			wantKind:  MatchSnippet,
			wantScore: 0.65,
		},
		{
			name:      "half-width katakana",
			in:        core.EnrichInput{Merchant: "ｽﾀｰﾊﾞｯｸｽ ｺｰﾋｰ 渋谷店"},
			wantEntry: "スターバックス",
			wantKind:  MatchPattern,
			wantScore: 0.9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := d.Match(tt.in)
			if !ok {
				t.Fatal("expected a match")
			}
			if m.Entry.Name != tt.wantEntry || m.Kind != tt.wantKind {
				t.Errorf("Match() = %s/%s, want %s/%s", m.Entry.Name, m.Kind, tt.wantEntry, tt.wantKind)
			}
			if diff := m.Score - tt.wantScore; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score = %v, want %v", m.Score, tt.wantScore)
			}
		})
	}

	if _, ok := d.Match(core.EnrichInput{Merchant: "山田商店"}); ok {
		t.Error("unexpected match for unknown merchant")
	}
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()

	t.Run("dictionary hit", func(t *testing.T) {
		cat := &fakeCategorizer{}
		e := New(nil, 0.6, cat, zap.NewNop())
		got := e.Enrich(ctx, core.EnrichInput{Merchant: "Netflix", Amount: 1490})
		if got.Merchant != "Netflix" || got.Category != CategoryVideo || !got.Subscription || got.Source != SourceDictionary {
			t.Errorf("Enrich() = %+v", got)
		}
		if got.Billing != BillingMonthly {
			t.Errorf("Billing = %q", got.Billing)
		}
		if cat.calls != 0 {
			t.Errorf("categorizer called %d times", cat.calls)
		}
	})

	t.Run("below threshold falls back to raw", func(t *testing.T) {
		e := New(nil, 0.6, nil, nil)
		got := e.Enrich(ctx, core.EnrichInput{Merchant: " 山田商店 ", Snippet: "ご利用ありがとうございます"})
		if got.Merchant != "山田商店" || got.Category != CategoryOther || got.Source != SourceRaw {
			t.Errorf("Enrich() = %+v", got)
		}
	})

	t.Run("snippet only below threshold", func(t *testing.T) {
		e := New(nil, 0.6, nil, nil)
		got := e.Enrich(ctx, core.EnrichInput{Merchant: "ABC SHOP", Snippet: "netflix"})
		if got.Source != SourceRaw || got.Merchant != "ABC SHOP" {
			t.Errorf("Enrich() = %+v", got)
		}
	})

	t.Run("categorizer fallback", func(t *testing.T) {
		cat := &fakeCategorizer{answer: &core.MerchantCategory{Merchant: "Yamada", Category: "shopping", Confidence: 0.8}}
		e := New(nil, 0.6, cat, nil)
		got := e.Enrich(ctx, core.EnrichInput{Merchant: "山田商店"})
		if got.Merchant != "Yamada" || got.Category != CategoryShopping || got.Source != SourceLLM {
			t.Errorf("Enrich() = %+v", got)
		}
	})

	t.Run("categorizer error is ignored", func(t *testing.T) {
		cat := &fakeCategorizer{err: errors.New("boom")}
		e := New(nil, 0.6, cat, nil)
		got := e.Enrich(ctx, core.EnrichInput{Merchant: "山田商店"})
		if got.Source != SourceRaw || cat.calls != 1 {
			t.Errorf("Enrich() = %+v, calls = %d", got, cat.calls)
		}
	})
}

func TestLoadDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merchants.yaml")
	data := `entries:
  - name: Netflix
    category: video
    patterns: ["netflix", "nflx"]
    typical_price: 2290
    billing: monthly
  - name: 近所のジム
    category: other
    aliases: ["ジム月会費"]
    typical_price: 8800
    billing: monthly
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary() error = %v", err)
	}
	if d.Len() != DefaultDictionary().Len()+1 {
		t.Errorf("Len() = %d, want defaults plus one", d.Len())
	}
	e, ok := d.Lookup("netflix")
	if !ok || e.TypicalPrice != 2290 {
		t.Errorf("Netflix entry not replaced: %+v", e)
	}
	m, ok := d.Match(core.EnrichInput{Merchant: "ジム月会費", Amount: 8800})
	if !ok || m.Entry.Name != "近所のジム" || !m.Entry.Subscription() {
		t.Errorf("Match() = %+v, %v", m, ok)
	}

	if _, err := ParseDictionary([]byte("entries:\n  - name: Bad\n    patterns: [\"(\"]\n")); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestParseAnswer(t *testing.T) {
	a, err := ParseAnswer("Sure:\n{\"merchant\": \"Netflix\", \"category\": \"Video\", \"subscription\": true, \"confidence\": 1.4}\n")
	if err != nil {
		t.Fatalf("ParseAnswer() error = %v", err)
	}
	c := a.ToCategory("test-model")
	if c.Merchant != "Netflix" || c.Category != CategoryVideo || !c.Subscription || c.Confidence != 1 || c.ModelUsed != "test-model" {
		t.Errorf("ToCategory() = %+v", c)
	}

	if _, err := ParseAnswer("no json here"); err == nil {
		t.Error("expected error")
	}
}
