package di

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
)

func TestParseFlagSet(t *testing.T) {
	fs := flag.NewFlagSet("cardmail-scan", flag.ContinueOnError)
	flags := ParseFlagSet(fs, []string{"-mbox", "card.mbox", "-days", "7", "-profile", "strict", "-subscriptions"})

	if flags.MboxPath != "card.mbox" || flags.LookbackDays != 7 || flags.Profile != "strict" || !flags.Subscriptions {
		t.Errorf("flags = %+v", flags)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, &CLIFlags{
		MboxPath:   "card.mbox",
		SQLitePath: "/tmp/cardmail.db",
		Provider:   "openai",
		Profile:    "flexible",
	})

	if src := cfg.GetSource(); src.Type != "mbox" || src.Mbox.Path != "card.mbox" {
		t.Errorf("source = %+v", src)
	}
	if st := cfg.GetStore(); st.Type != "sqlite" || st.SQLitePath != "/tmp/cardmail.db" {
		t.Errorf("store = %+v", st)
	}
	if !cfg.GetEnrich().LLMFallback || cfg.GetLLM().Provider != "openai" {
		t.Error("provider flag should enable the LLM fallback")
	}
	if cfg.GetLedger().Enabled {
		t.Error("ledger should be disabled for flag-only runs")
	}
	if cfg.GetClassifier().Profile != "flexible" {
		t.Errorf("profile = %q", cfg.GetClassifier().Profile)
	}

	applyFlags(cfg, &CLIFlags{File: "notice.eml"})
	if got := cfg.GetSource().Type; got != "none" {
		t.Errorf("single file run source = %q, want none", got)
	}
}

func TestBuildCLIContainer(t *testing.T) {
	flags := &CLIFlags{MboxPath: filepath.Join(t.TempDir(), "card.mbox")}
	container, err := BuildCLIContainer(flags)
	if err != nil {
		t.Fatalf("BuildCLIContainer() error = %v", err)
	}

	err = container.Invoke(func(p *core.Pipeline, store core.TransactionStore, ledger core.MessageLedger) {
		if p == nil || store == nil {
			t.Error("pipeline and store must be provided")
		}
		if ledger != nil {
			t.Error("ledger should be disabled")
		}
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
}
