package pipeline

import (
	"errors"

	"github.com/kikiluvv/replaycoach/internal/analysis"
	"github.com/kikiluvv/replaycoach/internal/metrics"
)

var (
	// ErrWriteOutput marks a failure to persist a Result.
	ErrWriteOutput = errors.New("failed to write analysis output")
	// ErrNoGenerator means feedback was requested without an llm client.
	ErrNoGenerator = errors.New("feedback generator not configured")
)

// Result is the persisted outcome of a full run
type Result struct {
	Stats    *analysis.Stats `json:"stats"`
	Feedback string          `json:"feedback"`
}

// Option configures NewFromConfig
type Option func(*options)

type options struct {
	progress analysis.ProgressFunc
	metrics  *metrics.Manager
}

// WithProgress reports frame decoding progress
func WithProgress(fn analysis.ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithMetrics records analysis outcomes on m
func WithMetrics(m *metrics.Manager) Option {
	return func(o *options) {
		o.metrics = m
	}
}
