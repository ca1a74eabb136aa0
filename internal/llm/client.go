// Package llm talks to OpenAI-compatible chat-completion endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrMissingAPIKey = errors.New("llm api key is required")
	ErrNoChoices     = errors.New("llm response contained no choices")
)

// Client implements feedback.Completer on top of go-openai
type Client struct {
	logger zerolog.Logger
	api    *openai.Client
}

// New builds a client from the llm config section
func New(logger zerolog.Logger, cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set llm.api_key or %s", ErrMissingAPIKey, config.EnvAPIKey)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger = logger.With().Str("component", "llm").Logger()
	logger.Debug().
		Str("base_url", apiCfg.BaseURL).
		Dur("timeout", cfg.Timeout).
		Msg("llm client configured")

	return &Client{
		logger: logger,
		api:    openai.NewClientWithConfig(apiCfg),
	}, nil
}

// Complete sends prompt as a single user message and returns the first
// choice's content
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	return resp.Choices[0].Message.Content, nil
}
