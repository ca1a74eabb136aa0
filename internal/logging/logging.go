package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger
func Init(verbose bool) {
	InitWithWriter(os.Stderr, verbose)
}

// InitWithWriter installs a console logger writing to out
func InitWithWriter(out io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// SetLevel applies a textual level (debug, info, warn, error). Empty keeps
// the current level.
func SetLevel(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return nil
	}
	if level == "warning" {
		level = "warn"
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", level, err)
	}

	zerolog.SetGlobalLevel(lvl)
	return nil
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
