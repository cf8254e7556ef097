package config

import "time"

// SourceConfig selects and configures the mail source
type SourceConfig struct {
	Type  string
	Mbox  MboxConfig
	Gmail GmailConfig
	IMAP  IMAPConfig
}

// MboxConfig represents the configuration for an mbox file source
type MboxConfig struct {
	Path string
}

// GmailConfig represents the configuration for the Gmail API source
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	User            string
}

// IMAPConfig represents the configuration for an IMAP source
type IMAPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      bool
}

// PipelineConfig represents the run parameters of the pipeline
type PipelineConfig struct {
	LookbackDays   int
	PageSize       int
	MaxPages       int
	MaxBodyFetches int
	Concurrency    int
	Interval       time.Duration
}

// QueryConfig represents the search expression word lists
type QueryConfig struct {
	Keywords []string
	Domains  []string
}

// GateConfig represents the metadata gate lists
type GateConfig struct {
	BlockDomains    []string
	AllowDomains    []string
	PromotionsLabel string
}

// TrustConfig represents the sender trust lists
type TrustConfig struct {
	IssuerDomains  []string
	TrustedDomains []string
}

// ClassifierConfig represents the classifier profile selection
type ClassifierConfig struct {
	Profile        string
	PromoThreshold int
}

// EnrichConfig represents the merchant enrichment settings
type EnrichConfig struct {
	DictionaryPath string
	MinConfidence  float64
	LLMFallback    bool
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// LedgerConfig represents the processed-message ledger configuration
type LedgerConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// StoreConfig represents the transaction store configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// ServerConfig represents the SMTP ingest server configuration
type ServerConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetSource returns the mail source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type: c.GetString("source.type"),
		Mbox: MboxConfig{
			Path: c.GetString("source.mbox.path"),
		},
		Gmail: GmailConfig{
			CredentialsFile: c.GetString("source.gmail.credentials_file"),
			TokenFile:       c.GetString("source.gmail.token_file"),
			User:            c.GetString("source.gmail.user"),
		},
		IMAP: IMAPConfig{
			Server:   c.GetString("source.imap.server"),
			Port:     c.GetInt("source.imap.port"),
			Username: c.GetString("source.imap.username"),
			Password: c.GetString("source.imap.password"),
			Mailbox:  c.GetString("source.imap.mailbox"),
			TLS:      c.GetBool("source.imap.tls"),
		},
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		LookbackDays:   c.GetInt("pipeline.lookback_days"),
		PageSize:       c.GetInt("pipeline.page_size"),
		MaxPages:       c.GetInt("pipeline.max_pages"),
		MaxBodyFetches: c.GetInt("pipeline.max_body_fetches"),
		Concurrency:    c.GetInt("pipeline.concurrency"),
		Interval:       c.durationOr("pipeline.interval", time.Hour),
	}
}

// GetQuery returns the query builder configuration
func (c *Config) GetQuery() QueryConfig {
	return QueryConfig{
		Keywords: c.GetStringSlice("query.keywords"),
		Domains:  c.GetStringSlice("query.domains"),
	}
}

// GetGate returns the metadata gate configuration
func (c *Config) GetGate() GateConfig {
	return GateConfig{
		BlockDomains:    c.GetStringSlice("gate.block_domains"),
		AllowDomains:    c.GetStringSlice("gate.allow_domains"),
		PromotionsLabel: c.GetString("gate.promotions_label"),
	}
}

// GetTrust returns the sender trust configuration
func (c *Config) GetTrust() TrustConfig {
	return TrustConfig{
		IssuerDomains:  c.GetStringSlice("trust.issuer_domains"),
		TrustedDomains: c.GetStringSlice("trust.trusted_domains"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Profile:        c.GetString("classifier.profile"),
		PromoThreshold: c.GetInt("classifier.promo_threshold"),
	}
}

// GetEnrich returns the enrichment configuration
func (c *Config) GetEnrich() EnrichConfig {
	return EnrichConfig{
		DictionaryPath: c.GetString("enrich.dictionary_path"),
		MinConfidence:  c.GetFloat64("enrich.min_confidence"),
		LLMFallback:    c.GetBool("enrich.llm_fallback"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetLedger returns the processed-message ledger configuration
func (c *Config) GetLedger() LedgerConfig {
	return LedgerConfig{
		Enabled:          c.GetBool("ledger.enabled"),
		Type:             c.GetString("ledger.type"),
		TTL:              c.durationOr("ledger.ttl", 90*24*time.Hour),
		CleanupFrequency: c.durationOr("ledger.cleanup_frequency", time.Hour),
		SQLitePath:       c.GetString("ledger.sqlite_path"),
		MySQLDSN:         c.GetString("ledger.mysql_dsn"),
		RedisAddr:        c.GetString("ledger.redis_addr"),
		RedisPassword:    c.GetString("ledger.redis_password"),
		RedisDB:          c.GetInt("ledger.redis_db"),
	}
}

// GetStore returns the transaction store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetServer returns the SMTP ingest server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Enabled:         c.GetBool("server.enabled"),
		ListenAddress:   c.GetString("server.listen_address"),
		Domain:          c.GetString("server.domain"),
		MaxMessageBytes: int64(c.GetInt("server.max_message_bytes")),
		ReadTimeout:     c.durationOr("server.read_timeout", time.Minute),
		WriteTimeout:    c.durationOr("server.write_timeout", time.Minute),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}

// durationOr parses a duration key, falling back when it is unset or malformed
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
