package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	p := cfg.GetPipeline()
	if p.LookbackDays != 30 || p.PageSize != 100 || p.MaxPages != 20 || p.Concurrency != 4 {
		t.Errorf("pipeline defaults = %+v", p)
	}
	if p.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", p.Interval)
	}

	if got := cfg.GetClassifier().Profile; got != "balanced" {
		t.Errorf("classifier profile = %q, want balanced", got)
	}
	if got := cfg.GetGate().PromotionsLabel; got != "CATEGORY_PROMOTIONS" {
		t.Errorf("promotions label = %q", got)
	}
	if got := cfg.GetEnrich().MinConfidence; got != 0.6 {
		t.Errorf("min confidence = %v, want 0.6", got)
	}

	l := cfg.GetLedger()
	if !l.Enabled || l.Type != "memory" || l.TTL != 2160*time.Hour || l.CleanupFrequency != time.Hour {
		t.Errorf("ledger defaults = %+v", l)
	}
	if got := cfg.GetLLM().Provider; got != "none" {
		t.Errorf("llm provider = %q, want none", got)
	}
	if got := cfg.GetSource().Type; got != "none" {
		t.Errorf("source type = %q, want none", got)
	}
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("source.type", "imap")
	v.Set("source.imap.server", "imap.example.com")
	v.Set("ledger.ttl", "bogus")
	v.Set("server.read_timeout", "5s")
	v.Set("gate.block_domains", []string{"news.example.com"})
	cfg := NewFromViper(v)

	src := cfg.GetSource()
	if src.Type != "imap" || src.IMAP.Server != "imap.example.com" || src.IMAP.Port != 993 {
		t.Errorf("source = %+v", src)
	}
	if got := cfg.GetLedger().TTL; got != 90*24*time.Hour {
		t.Errorf("malformed ttl = %v, want fallback", got)
	}
	if got := cfg.GetServer().ReadTimeout; got != 5*time.Second {
		t.Errorf("read timeout = %v", got)
	}
	if got := cfg.GetGate().BlockDomains; len(got) != 1 || got[0] != "news.example.com" {
		t.Errorf("block domains = %v", got)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cardmail.yaml")
	data := "source:\n  type: gmail\npipeline:\n  lookback_days: 7\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if got := cfg.GetSource().Type; got != "gmail" {
		t.Errorf("source type = %q, want gmail", got)
	}
	if got := cfg.GetPipeline().LookbackDays; got != 7 {
		t.Errorf("lookback = %d, want 7", got)
	}
	if got := cfg.GetPipeline().PageSize; got != 100 {
		t.Errorf("page size = %d, want default 100", got)
	}

	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
