// Package pipeline wires frame statistics and model feedback into one run
// shared by the CLI and the HTTP service.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kikiluvv/replaycoach/internal/analysis"
	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/kikiluvv/replaycoach/internal/feedback"
	"github.com/kikiluvv/replaycoach/internal/ffmpeg"
	"github.com/kikiluvv/replaycoach/internal/llm"
	"github.com/kikiluvv/replaycoach/internal/metrics"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/kikiluvv/replaycoach/internal/video"
	"github.com/rs/zerolog"
)

// Pipeline orchestrates analysis and feedback. It holds no per-call state.
type Pipeline struct {
	logger    zerolog.Logger
	extractor *analysis.Extractor
	generator *feedback.Generator
	metrics   *metrics.Manager
}

// New assembles a pipeline from ready components. generator may be nil
// when only statistics are needed.
func New(logger zerolog.Logger, extractor *analysis.Extractor, generator *feedback.Generator, opts ...Option) *Pipeline {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		extractor: extractor,
		generator: generator,
		metrics:   o.metrics,
	}
}

// NewFromConfig builds the ffmpeg-backed extractor and, when an API key is
// configured, the model-backed generator
func NewFromConfig(logger zerolog.Logger, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	extractorOpts := []analysis.Option{analysis.WithMaxFrameWidth(cfg.Analysis.MaxFrameWidth)}
	if o.progress != nil {
		extractorOpts = append(extractorOpts, analysis.WithProgress(o.progress))
	}
	extractor := analysis.NewExtractor(logger, video.NewFFmpegOpener(logger, exec), extractorOpts...)

	var generator *feedback.Generator
	client, err := llm.New(logger, cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		logger.Warn().Msg("no llm api key configured, feedback disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	default:
		generator = feedback.NewGenerator(logger, client,
			feedback.WithModel(cfg.LLM.Model),
			feedback.WithMaxTokens(cfg.LLM.MaxTokens),
			feedback.WithTimeout(cfg.LLM.Timeout),
		)
	}

	return New(logger, extractor, generator, WithMetrics(o.metrics)), nil
}

// CanGenerateFeedback reports whether Run can produce feedback
func (p *Pipeline) CanGenerateFeedback() bool {
	return p.generator != nil
}

// Analyze computes frame statistics for the video at path
func (p *Pipeline) Analyze(ctx context.Context, path string) (*analysis.Stats, error) {
	start := time.Now()

	stats, err := p.extractor.Analyze(ctx, path)
	p.record(stats, err, start)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Run analyzes the video at path and asks the model for feedback
func (p *Pipeline) Run(ctx context.Context, path string, prof profile.Profile) (*Result, error) {
	if p.generator == nil {
		return nil, ErrNoGenerator
	}

	p.logger.Info().Str("video", path).Msg("starting analysis pipeline")
	start := time.Now()

	stats, err := p.extractor.Analyze(ctx, path)
	if err != nil {
		p.record(nil, err, start)
		return nil, err
	}

	text, err := p.generator.CreateFeedback(ctx, stats, prof)
	p.record(stats, err, start)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("video", path).
		Dur("elapsed", time.Since(start)).
		Msg("analysis pipeline complete")

	return &Result{Stats: stats, Feedback: text}, nil
}

func (p *Pipeline) record(stats *analysis.Stats, err error, start time.Time) {
	frames := 0
	if stats != nil {
		frames = stats.Frames
	}
	p.metrics.RecordAnalysis(outcome(err), frames, time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, analysis.ErrVideoNotFound):
		return metrics.OutcomeVideoNotFound
	case errors.Is(err, analysis.ErrDecode):
		return metrics.OutcomeDecodeError
	case errors.Is(err, feedback.ErrGeneration):
		return metrics.OutcomeFeedbackError
	default:
		return metrics.OutcomeError
	}
}

// WriteResult stores r at path as two-space indented JSON
func WriteResult(path string, r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
