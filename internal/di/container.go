package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/factory"
	"github.com/s1f10230230/credit-visual-sub000/internal/logging"
	"github.com/s1f10230230/credit-visual-sub000/internal/ports"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
)

// BuildContainer creates and configures the dependency injection container for the daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register ingest factory and SMTP ingestor
	if err := container.Provide(factory.NewIngestFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IngestFactory) (ports.Ingestor, error) {
		return f.CreateIngestor()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers everything both binaries share once config and logger are known
func provideCommon(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLedgerFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register adapters
	if err := container.Provide(func(f *factory.LLMFactory) (core.MerchantCategorizer, error) {
		return f.CreateCategorizer()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LedgerFactory) (core.MessageLedger, error) {
		return f.CreateLedger()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (core.TransactionStore, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.SourceFactory) (core.MailSource, error) {
		return f.CreateSource()
	}); err != nil {
		return err
	}

	// Register pipeline
	return container.Provide(func(
		f *factory.PipelineFactory,
		source core.MailSource,
		categorizer core.MerchantCategorizer,
		ledger core.MessageLedger,
		store core.TransactionStore,
		logger *zap.Logger,
	) (*core.Pipeline, error) {
		cls, err := f.CreateClassifier()
		if err != nil {
			return nil, err
		}
		dict, err := f.CreateDictionary()
		if err != nil {
			return nil, err
		}

		return core.NewPipeline(
			source,
			f.CreateGate(),
			f.CreateDecoder(),
			cls,
			f.CreateEnricher(dict, categorizer),
			ledger,
			store,
			f.CreateQueryBuilder(),
			f.GetPipelineOptions(),
			logger.Named("pipeline"),
		), nil
	})
}
