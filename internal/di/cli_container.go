package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Source flags
	Source   string
	MboxPath string
	File     string

	// Run flags
	LookbackDays   int
	MaxBodyFetches int
	Concurrency    int
	Profile        string
	Subscriptions  bool

	// Store flags
	StoreType  string
	SQLitePath string

	// LLM provider flags
	Provider     string
	OpenAIAPIKey string
	GeminiAPIKey string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, os.Args[1:])
}

// ParseFlagSet registers the CLI flags on fs and parses args
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Source flags
	fs.StringVar(&flags.Source, "source", "", "Mail source (mbox, gmail, imap); empty keeps the configured source")
	fs.StringVar(&flags.MboxPath, "mbox", "", "Path to an mbox file (implies -source mbox)")
	fs.StringVar(&flags.File, "file", "", "Classify a single RFC822 message file instead of running the pipeline ('-' for stdin)")

	// Run flags
	fs.IntVar(&flags.LookbackDays, "days", 0, "Lookback window in days (0 keeps the configured value)")
	fs.IntVar(&flags.MaxBodyFetches, "max-bodies", 0, "Maximum message bodies to fetch (0 keeps the configured value)")
	fs.IntVar(&flags.Concurrency, "concurrency", 0, "Parallel fetches (0 keeps the configured value)")
	fs.StringVar(&flags.Profile, "profile", "", "Classifier profile (strict, balanced, flexible)")
	fs.BoolVar(&flags.Subscriptions, "subscriptions", false, "Print recurring charges found in the transaction store")

	// Store flags
	fs.StringVar(&flags.StoreType, "store", "", "Transaction store (memory, sqlite, mysql)")
	fs.StringVar(&flags.SQLitePath, "sqlite", "", "SQLite database path for the transaction store")

	// LLM provider flags
	fs.StringVar(&flags.Provider, "provider", "", "LLM provider for unknown merchants (none, bedrock, gemini, openai)")
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")

	// Output flags
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and report details")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	_ = fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			applyFlags(cfg, flags)
			return cfg, nil
		}

		cfg := config.NewFromViper(config.NewEmptyViper())
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags layers the flags that were set over the configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	// One-shot runs should not be skipped by a previous run's ledger unless one is configured
	if flags.ConfigFile == "" {
		v.Set("ledger.enabled", false)
	}

	if flags.MboxPath != "" {
		v.Set("source.type", "mbox")
		v.Set("source.mbox.path", flags.MboxPath)
	}
	if flags.Source != "" {
		v.Set("source.type", flags.Source)
	}
	if flags.File != "" {
		v.Set("source.type", "none")
	}

	if flags.LookbackDays > 0 {
		v.Set("pipeline.lookback_days", flags.LookbackDays)
	}
	if flags.MaxBodyFetches > 0 {
		v.Set("pipeline.max_body_fetches", flags.MaxBodyFetches)
	}
	if flags.Concurrency > 0 {
		v.Set("pipeline.concurrency", flags.Concurrency)
	}
	if flags.Profile != "" {
		v.Set("classifier.profile", flags.Profile)
	}

	if flags.StoreType != "" {
		v.Set("store.type", flags.StoreType)
	}
	if flags.SQLitePath != "" {
		v.Set("store.sqlite_path", flags.SQLitePath)
		if flags.StoreType == "" {
			v.Set("store.type", "sqlite")
		}
	}

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
		v.Set("enrich.llm_fallback", flags.Provider != "none")
	}
	if flags.OpenAIAPIKey != "" {
		v.Set("openai.api_key", flags.OpenAIAPIKey)
	}
	if flags.GeminiAPIKey != "" {
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	}
}
