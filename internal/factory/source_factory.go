package factory

import (
	"context"
	"fmt"

	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/gmail"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/imap"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/mbox"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates mail sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates the configured mail source. It returns nil for type "none",
// which leaves the daemon running on SMTP ingest alone.
func (f *SourceFactory) CreateSource() (core.MailSource, error) {
	sc := f.cfg.GetSource()
	pageSize := f.cfg.GetPipeline().PageSize

	switch sc.Type {
	case "", "none":
		return nil, nil
	case "mbox":
		if sc.Mbox.Path == "" {
			return nil, fmt.Errorf("mbox source requires source.mbox.path")
		}
		return mbox.NewSource(sc.Mbox.Path, pageSize, f.logger), nil
	case "gmail":
		return gmail.NewSource(context.Background(), gmail.Config{
			CredentialsFile: sc.Gmail.CredentialsFile,
			TokenFile:       sc.Gmail.TokenFile,
			User:            sc.Gmail.User,
			PageSize:        int64(pageSize),
		}, f.logger)
	case "imap":
		if sc.IMAP.Server == "" {
			return nil, fmt.Errorf("imap source requires source.imap.server")
		}
		return imap.NewSource(imap.Config{
			Server:   sc.IMAP.Server,
			Port:     sc.IMAP.Port,
			Username: sc.IMAP.Username,
			Password: sc.IMAP.Password,
			Mailbox:  sc.IMAP.Mailbox,
			TLS:      sc.IMAP.TLS,
			PageSize: pageSize,
		}, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sc.Type)
	}
}
