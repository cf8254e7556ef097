package factory

import (
	"fmt"

	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/bedrock"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/gemini"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/openai"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates merchant categorizers
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateCategorizer creates the configured categorizer. It returns nil when the
// LLM fallback is disabled or no provider is configured.
func (f *LLMFactory) CreateCategorizer() (core.MerchantCategorizer, error) {
	if !f.cfg.GetEnrich().LLMFallback {
		return nil, nil
	}

	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "", "none":
		return nil, nil
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateCategorizer()
	case "gemini":
		if f.cfg.GetGemini().APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateCategorizer()
	case "openai":
		if f.cfg.GetOpenAI().APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateCategorizer()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
