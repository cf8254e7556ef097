package factory

import (
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/ingest"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/ports"
	"go.uber.org/zap"
)

// IngestFactory creates inbound transports based on configuration
type IngestFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *core.Pipeline
}

// NewIngestFactory creates a new ingest factory
func NewIngestFactory(cfg *config.Config, logger *zap.Logger, pipeline *core.Pipeline) *IngestFactory {
	return &IngestFactory{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}
}

// CreateIngestor creates the SMTP ingest server. It returns nil when the server is disabled.
func (f *IngestFactory) CreateIngestor() (ports.Ingestor, error) {
	sc := f.cfg.GetServer()
	if !sc.Enabled {
		return nil, nil
	}

	return ingest.NewSMTPServer(
		f.pipeline,
		f.logger,
		sc.ListenAddress,
		sc.Domain,
		sc.MaxMessageBytes,
		sc.ReadTimeout,
		sc.WriteTimeout,
	), nil
}
