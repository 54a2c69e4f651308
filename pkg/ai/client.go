// Package ai turns dashboard figures into written insights for the shop
// owner through an OpenAI-compatible chat completion endpoint.
package ai

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/global"
)

type Client struct {
	api   *openai.Client
	model string
}

// NewClient returns a disabled client when the endpoint or key is missing.
func NewClient(settings global.Settings) *Client {
	if settings.AIEndpoint == "" || settings.AIAPIKey == "" {
		zap.L().Info("AI insights disabled", zap.String("required", "AI_ENDPOINT and AI_API_KEY"))
		return &Client{}
	}

	api := openai.NewClient(
		option.WithBaseURL(settings.AIEndpoint),
		option.WithAPIKey(settings.AIAPIKey),
		option.WithMaxRetries(1),
	)
	zap.L().Info("AI insights enabled", zap.String("model", settings.AIModel))
	return &Client{api: &api, model: settings.AIModel}
}

func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

func (c *Client) generateCompletion(ctx context.Context, systemMessage, userMessage string) (string, error) {
	if !c.Enabled() {
		return "", &AIError{Message: "AI service is not enabled"}
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(userMessage),
		},
		MaxTokens:   openai.Int(800),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		zap.L().Warn("AI completion failed", zap.Error(err))
		return "", &AIError{Message: "failed to generate AI response", Cause: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{Message: "AI returned empty response"}
	}
	return resp.Choices[0].Message.Content, nil
}

type AIError struct {
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AIError) Unwrap() error { return e.Cause }
