package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/enrich"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient categorizes unknown merchants with Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini categorizer
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SystemInstruction = genai.NewUserContent(genai.Text(enrich.SystemPrompt))
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// CategorizeMerchant asks the model for the merchant's common name and category
func (c *GeminiClient) CategorizeMerchant(ctx context.Context, q *core.MerchantQuery) (*core.MerchantCategory, error) {
	snippet := c.textProcessor.ProcessText(q.Snippet, c.maxBodySize)
	prompt := enrich.BuildPrompt(q, snippet)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	answer, err := enrich.ParseAnswer(text)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Merchant categorized",
		zap.String("merchant", q.Merchant),
		zap.String("category", answer.Category),
		zap.Float64("confidence", answer.Confidence))

	return answer.ToCategory(c.modelName), nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
