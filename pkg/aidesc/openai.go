package aidesc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billister-api/models"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "Du skriver korte, sælgende annoncetekster på dansk for brugte biler. " +
	"Brug kun de oplyste fakta. Maksimalt 80 ord. Ingen overskrift."

// OpenAIConfig holds the chat completion settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI generates descriptions with a chat completion model and falls back
// to the template text when the model returns nothing usable.
type OpenAI struct {
	client   *openai.Client
	model    string
	fallback Generator
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		fallback: Template{},
	}
}

func (g *OpenAI) Generate(ctx context.Context, l *models.Listing) (string, error) {
	facts, err := g.fallback.Generate(ctx, l)
	if err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: facts},
		},
		Temperature: 0.4,
		MaxTokens:   300,
	})
	if err != nil {
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return facts, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return facts, nil
	}
	return text, nil
}

func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("description API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("description API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	return fmt.Errorf("description request failed: %w", err)
}
