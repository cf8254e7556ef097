package gemini

import (
	"context"

	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

// Factory builds Gemini merchant categorizers from the gemini.* settings
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Gemini merchant categorizers
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateCategorizer creates a categorizer for merchants the dictionary does not know
func (f *Factory) CreateCategorizer() (core.MerchantCategorizer, error) {
	geminiCfg := f.cfg.GetGemini()

	return NewGeminiClient(
		context.Background(),
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
