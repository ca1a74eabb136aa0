// Package feedback turns frame statistics and a player profile into
// coaching text from a chat-completion model.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kikiluvv/replaycoach/internal/analysis"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/rs/zerolog"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 250

	preamble = "You are an esports strategist. Review the following raw statistics " +
		"and player profile and provide a short performance summary, three " +
		"bullet points of improvement suggestions, and a brief strategy tip " +
		"for defeating upcoming opponents."
)

// ErrGeneration marks a failed or unusable model call.
var ErrGeneration = errors.New("feedback generation failed")

// Completer sends a single user message to a chat model and returns the
// text of its first choice.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// Option configures a Generator
type Option func(*Generator)

// WithModel overrides the chat model
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithMaxTokens overrides the completion token limit
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTimeout bounds each model call
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.timeout = d
	}
}

// Generator produces feedback text. It is safe for concurrent use.
type Generator struct {
	logger    zerolog.Logger
	client    Completer
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewGenerator creates a generator backed by client
func NewGenerator(logger zerolog.Logger, client Completer, opts ...Option) *Generator {
	g := &Generator{
		logger:    logger.With().Str("component", "feedback").Logger(),
		client:    client,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateFeedback asks the model for a performance summary, three
// improvement suggestions and a strategy tip
func (g *Generator) CreateFeedback(ctx context.Context, stats *analysis.Stats, p profile.Profile) (string, error) {
	prompt, err := BuildPrompt(stats, p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.client.Complete(ctx, g.model, prompt, g.maxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}

	g.logger.Info().
		Str("model", g.model).
		Dur("elapsed", time.Since(start)).
		Int("chars", len(text)).
		Msg("feedback generated")

	return text, nil
}

// BuildPrompt renders the fixed preamble followed by both records as
// two-space indented JSON
func BuildPrompt(stats *analysis.Stats, p profile.Profile) (string, error) {
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode statistics: %w", err)
	}
	raw, _ := p.MarshalJSON()

	// Indent rewrites whitespace only; string contents stay as loaded.
	var profileJSON bytes.Buffer
	if err := json.Indent(&profileJSON, raw, "", "  "); err != nil {
		return "", fmt.Errorf("failed to encode player profile: %w", err)
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nStatistics:\n")
	b.Write(statsJSON)
	b.WriteString("\n\nPlayer Profile:\n")
	b.Write(profileJSON.Bytes())
	return b.String(), nil
}
