package openai

import (
	"context"
	"fmt"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/enrich"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient categorizes unknown merchants with an OpenAI chat model
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI categorizer
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CategorizeMerchant asks the model for the merchant's common name and category
func (c *OpenAIClient) CategorizeMerchant(ctx context.Context, q *core.MerchantQuery) (*core.MerchantCategory, error) {
	snippet := c.textProcessor.ProcessText(q.Snippet, c.maxBodySize)
	prompt := enrich.BuildPrompt(q, snippet)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: enrich.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	answer, err := enrich.ParseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Merchant categorized",
		zap.String("merchant", q.Merchant),
		zap.String("category", answer.Category),
		zap.Float64("confidence", answer.Confidence),
		zap.String("request_id", resp.ID))

	return answer.ToCategory(c.modelName), nil
}
