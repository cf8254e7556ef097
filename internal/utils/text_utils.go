package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const truncationMarker = "\n[...]"

// TextProcessor cleans up decoded mail text before it is logged or sent to a model
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes without splitting a UTF-8 sequence
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", cut),
		zap.Int("max_size", maxSize))

	return text[:cut] + truncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes and then truncates text
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxSize)
}

// Snippet returns up to radius runes of text on each side of the first occurrence of
// needle, or the head of the text when needle is empty or absent
func (tp *TextProcessor) Snippet(text, needle string, radius int) string {
	runes := []rune(text)
	if radius <= 0 || len(runes) <= 2*radius {
		return text
	}

	center := 0
	if needle != "" {
		if i := strings.Index(text, needle); i >= 0 {
			center = utf8.RuneCountInString(text[:i])
		}
	}

	start := center - radius
	if start < 0 {
		start = 0
	}
	end := start + 2*radius
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
