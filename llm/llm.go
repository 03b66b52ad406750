// Package llm talks to the text generation service that drafts build definitions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/oar-cd/skiff/config"
)

// Generator turns a prompt into text. One call is one request; implementations must not retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator implements Generator with a chat completion request.
// It speaks to Azure OpenAI when an API version is configured.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewOpenAIGenerator builds a client from explicit settings
func NewOpenAIGenerator(cfg config.LLMConfig) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.AzureMode() {
		if cfg.Endpoint == "" {
			return nil, errors.New("endpoint is required in Azure mode")
		}
		opts = append(opts, azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion))
		if cfg.APIKey != "" {
			opts = append(opts, azure.WithAPIKey(cfg.APIKey))
		}
	} else {
		if cfg.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.APIKey))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	compl, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(compl.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	slog.Debug("Generation completed",
		"layer", "llm",
		"operation", "generate",
		"model", g.model,
		"duration", time.Since(start),
		"prompt_tokens", compl.Usage.PromptTokens,
		"completion_tokens", compl.Usage.CompletionTokens)

	return compl.Choices[0].Message.Content, nil
}
