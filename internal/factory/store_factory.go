package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/store"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates transaction stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a transaction store based on the configuration
func (f *StoreFactory) CreateStore() (core.TransactionStore, error) {
	sc := f.cfg.GetStore()

	switch sc.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sc.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(sc.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}
