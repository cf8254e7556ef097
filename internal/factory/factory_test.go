package factory

import (
	"path/filepath"
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/ledger"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/mbox"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/store"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/gate"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

func newTestConfig(set map[string]interface{}) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range set {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateLedger(t *testing.T) {
	logger := zap.NewNop()

	l, err := NewLedgerFactory(newTestConfig(nil), logger).CreateLedger()
	if err != nil {
		t.Fatalf("CreateLedger() error = %v", err)
	}
	mem, ok := l.(*ledger.MemoryLedger)
	if !ok {
		t.Fatalf("default ledger = %T, want *ledger.MemoryLedger", l)
	}
	mem.Stop()

	l, err = NewLedgerFactory(newTestConfig(map[string]interface{}{"ledger.enabled": false}), logger).CreateLedger()
	if err != nil || l != nil {
		t.Errorf("disabled ledger = %v, %v; want nil, nil", l, err)
	}

	if _, err := NewLedgerFactory(newTestConfig(map[string]interface{}{"ledger.type": "etcd"}), logger).CreateLedger(); err == nil {
		t.Error("expected error for unsupported ledger type")
	}
}

func TestCreateStore(t *testing.T) {
	logger := zap.NewNop()

	s, err := NewStoreFactory(newTestConfig(nil), logger).CreateStore()
	if err != nil {
		t.Fatalf("CreateStore() error = %v", err)
	}
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("default store = %T, want *store.MemoryStore", s)
	}

	path := filepath.Join(t.TempDir(), "db", "cardmail.db")
	s, err = NewStoreFactory(newTestConfig(map[string]interface{}{"store.type": "sqlite", "store.sqlite_path": path}), logger).CreateStore()
	if err != nil {
		t.Fatalf("CreateStore(sqlite) error = %v", err)
	}
	if err := s.(*store.SQLStore).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCreateSource(t *testing.T) {
	logger := zap.NewNop()

	src, err := NewSourceFactory(newTestConfig(nil), logger).CreateSource()
	if err != nil || src != nil {
		t.Errorf("default source = %v, %v; want nil, nil", src, err)
	}

	src, err = NewSourceFactory(newTestConfig(map[string]interface{}{"source.type": "mbox"}), logger).CreateSource()
	if err != nil {
		t.Fatalf("CreateSource(mbox) error = %v", err)
	}
	if _, ok := src.(*mbox.Source); !ok {
		t.Errorf("mbox source = %T, want *mbox.Source", src)
	}

	if _, err := NewSourceFactory(newTestConfig(map[string]interface{}{"source.type": "imap"}), logger).CreateSource(); err == nil {
		t.Error("expected error for imap without server")
	}
}

func TestCreateCategorizer(t *testing.T) {
	logger := zap.NewNop()
	tp := utils.NewTextProcessor(logger)

	c, err := NewLLMFactory(newTestConfig(map[string]interface{}{"llm.provider": "openai"}), logger, tp).CreateCategorizer()
	if err != nil || c != nil {
		t.Errorf("fallback disabled = %v, %v; want nil, nil", c, err)
	}

	cfg := newTestConfig(map[string]interface{}{"enrich.llm_fallback": true, "llm.provider": "openai"})
	if _, err := NewLLMFactory(cfg, logger, tp).CreateCategorizer(); err == nil {
		t.Error("expected error for missing OpenAI key")
	}

	cfg = newTestConfig(map[string]interface{}{"enrich.llm_fallback": true, "llm.provider": "openai", "openai.api_key": "k"})
	if c, err := NewLLMFactory(cfg, logger, tp).CreateCategorizer(); err != nil || c == nil {
		t.Errorf("openai categorizer = %v, %v", c, err)
	}

	cfg = newTestConfig(map[string]interface{}{"enrich.llm_fallback": true, "llm.provider": "llama"})
	if _, err := NewLLMFactory(cfg, logger, tp).CreateCategorizer(); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestPipelineFactory(t *testing.T) {
	logger := zap.NewNop()
	cfg := newTestConfig(map[string]interface{}{"classifier.profile": "strict", "ledger.ttl": "48h"})
	f := NewPipelineFactory(cfg, logger, utils.NewTextProcessor(logger))

	c, err := f.CreateClassifier()
	if err != nil {
		t.Fatalf("CreateClassifier() error = %v", err)
	}
	if c.Profile().Name != "strict" {
		t.Errorf("profile = %q, want strict", c.Profile().Name)
	}

	bad := NewPipelineFactory(newTestConfig(map[string]interface{}{"classifier.profile": "loose"}), logger, nil)
	if _, err := bad.CreateClassifier(); err == nil {
		t.Error("expected error for unknown profile")
	}

	dict, err := f.CreateDictionary()
	if err != nil || dict.Len() == 0 {
		t.Fatalf("CreateDictionary() = %v, %v", dict, err)
	}

	opts := f.GetPipelineOptions()
	if opts.LookbackDays != 30 || opts.Concurrency != 4 || opts.LedgerTTL.Hours() != 48 {
		t.Errorf("options = %+v", opts)
	}
}

func TestCreateGateAllowsIssuers(t *testing.T) {
	logger := zap.NewNop()
	notice := &core.MailMeta{From: "JCB <info@qa.jcb.co.jp>", Subject: "カードご利用のお知らせ"}
	filed := &core.MailMeta{From: "info@qa.jcb.co.jp", Subject: "カードご利用のお知らせ", Labels: []string{"CATEGORY_PROMOTIONS"}}
	shop := &core.MailMeta{From: "info@shop.example", Subject: "ご注文の領収書"}

	tests := []struct {
		name string
		set  map[string]interface{}
		meta *core.MailMeta
		want core.GateDecision
	}{
		{"default issuers", nil, notice, core.GateDecision{Pass: true, Reason: gate.ReasonAllowReceipt, Weight: gate.WeightAllowReceipt}},
		{"issuer in promotions", nil, filed, core.GateDecision{Pass: true, Reason: gate.ReasonAllowReceipt, Weight: gate.WeightAllowReceipt}},
		{"unknown sender", nil, shop, core.GateDecision{Pass: true, Reason: gate.ReasonReceiptSubject, Weight: gate.WeightReceipt}},
		{"configured issuers", map[string]interface{}{"trust.issuer_domains": []string{"shop.example=Shop"}}, shop,
			core.GateDecision{Pass: true, Reason: gate.ReasonAllowReceipt, Weight: gate.WeightAllowReceipt}},
		{"trusted domains", map[string]interface{}{"trust.trusted_domains": []string{"shop.example"}}, shop,
			core.GateDecision{Pass: true, Reason: gate.ReasonAllowReceipt, Weight: gate.WeightAllowReceipt}},
		{"explicit allow list", map[string]interface{}{"gate.allow_domains": []string{"shop.example"}}, notice,
			core.GateDecision{Pass: true, Reason: gate.ReasonReceiptSubject, Weight: gate.WeightReceipt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPipelineFactory(newTestConfig(tt.set), logger, nil).CreateGate()
			if got := g.Evaluate(tt.meta); got != tt.want {
				t.Errorf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
