package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cardmail/")
	v.AddConfigPath("$HOME/.cardmail")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CARDMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration instance from an explicit config file
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CARDMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Mail source
	v.SetDefault("source.type", "none")
	v.SetDefault("source.mbox.path", "./mail/card.mbox")
	v.SetDefault("source.gmail.credentials_file", "credentials.json")
	v.SetDefault("source.gmail.token_file", "token.json")
	v.SetDefault("source.gmail.user", "me")
	v.SetDefault("source.imap.server", "")
	v.SetDefault("source.imap.port", 993)
	v.SetDefault("source.imap.username", "")
	v.SetDefault("source.imap.password", "")
	v.SetDefault("source.imap.mailbox", "INBOX")
	v.SetDefault("source.imap.tls", true)

	// Pipeline
	v.SetDefault("pipeline.lookback_days", 30)
	v.SetDefault("pipeline.page_size", 100)
	v.SetDefault("pipeline.max_pages", 20)
	v.SetDefault("pipeline.max_body_fetches", 0)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.interval", "1h")

	// Query and gate
	v.SetDefault("query.keywords", []string{})
	v.SetDefault("query.domains", []string{})
	v.SetDefault("gate.block_domains", []string{})
	v.SetDefault("gate.allow_domains", []string{})
	v.SetDefault("gate.promotions_label", "CATEGORY_PROMOTIONS")
	v.SetDefault("trust.issuer_domains", []string{})
	v.SetDefault("trust.trusted_domains", []string{})

	// Classifier
	v.SetDefault("classifier.profile", "balanced")
	v.SetDefault("classifier.promo_threshold", 0)

	// Enrichment
	v.SetDefault("enrich.dictionary_path", "")
	v.SetDefault("enrich.min_confidence", 0.6)
	v.SetDefault("enrich.llm_fallback", false)

	// LLM provider defaults
	v.SetDefault("llm.provider", "none")

	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 300)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 2048)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 300)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 2048)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 2048)

	// Processed-message ledger
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.type", "memory")
	v.SetDefault("ledger.ttl", "2160h")
	v.SetDefault("ledger.cleanup_frequency", "1h")
	v.SetDefault("ledger.sqlite_path", "/data/cardmail_ledger.db")
	v.SetDefault("ledger.mysql_dsn", "user:password@tcp(localhost:3306)/cardmail")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.redis_password", "")
	v.SetDefault("ledger.redis_db", 0)

	// Transaction store
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/cardmail.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/cardmail")

	// SMTP ingest server
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_address", "0.0.0.0:2525")
	v.SetDefault("server.domain", "localhost")
	v.SetDefault("server.max_message_bytes", 10*1024*1024)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
