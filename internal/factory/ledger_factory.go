package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/ledger"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// LedgerFactory creates processed-message ledgers based on configuration
type LedgerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLedgerFactory creates a new ledger factory
func NewLedgerFactory(cfg *config.Config, logger *zap.Logger) *LedgerFactory {
	return &LedgerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLedger creates a ledger based on the configuration. It returns nil when the ledger is disabled.
func (f *LedgerFactory) CreateLedger() (core.MessageLedger, error) {
	lc := f.cfg.GetLedger()
	if !lc.Enabled {
		f.logger.Info("Processed-message ledger disabled")
		return nil, nil
	}

	switch lc.Type {
	case "memory":
		return ledger.NewMemoryLedger(f.logger, lc.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(lc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return ledger.NewSQLiteLedger(lc.SQLitePath, f.logger, lc.CleanupFrequency)
	case "mysql":
		return ledger.NewMySQLLedger(lc.MySQLDSN, f.logger, lc.CleanupFrequency)
	case "redis":
		return ledger.NewRedisLedger(context.Background(), lc.RedisAddr, lc.RedisPassword, lc.RedisDB, f.logger)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", lc.Type)
	}
}

// GetLedgerTTL returns how long a processed message is remembered
func (f *LedgerFactory) GetLedgerTTL() time.Duration {
	return f.cfg.GetLedger().TTL
}

// IsLedgerEnabled returns whether the ledger is enabled
func (f *LedgerFactory) IsLedgerEnabled() bool {
	return f.cfg.GetLedger().Enabled
}
