package openai

import (
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory builds OpenAI merchant categorizers from the openai.* settings
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for OpenAI merchant categorizers
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger.Named("openai"),
		textProcessor: textProcessor,
	}
}

// CreateCategorizer creates a categorizer for unknown merchants. openai.base_url points it
// at an OpenAI-compatible endpoint instead of api.openai.com.
func (f *Factory) CreateCategorizer() (core.MerchantCategorizer, error) {
	openaiCfg := f.cfg.GetOpenAI()

	clientCfg := openai.DefaultConfig(openaiCfg.APIKey)
	if openaiCfg.BaseURL != "" {
		clientCfg.BaseURL = openaiCfg.BaseURL
	}

	f.logger.Info("Using OpenAI merchant categorizer",
		zap.String("model", openaiCfg.ModelName),
		zap.String("base_url", clientCfg.BaseURL))

	return NewOpenAIClient(
		openai.NewClientWithConfig(clientCfg),
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
