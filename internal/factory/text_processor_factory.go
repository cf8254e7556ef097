package factory

import (
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the shared text processor. The body decoder uses it for
// UTF-8 fallback and the merchant categorizers use it to trim notice snippets for prompts.
type TextProcessorFactory struct {
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		logger: logger.Named("text"),
	}
}

// CreateTextProcessor creates the text processor shared by decoding and categorization
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}
