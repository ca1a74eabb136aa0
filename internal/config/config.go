package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	LogLevel string `koanf:"log_level" yaml:"log_level"`
	TempDir  string `koanf:"temp_dir" yaml:"temp_dir"`

	// Frame statistics settings
	Analysis AnalysisConfig `koanf:"analysis" yaml:"analysis"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `koanf:"ffmpeg" yaml:"ffmpeg"`

	// Language model settings
	LLM LLMConfig `koanf:"llm" yaml:"llm"`

	// HTTP ingress settings
	Server ServerConfig `koanf:"server" yaml:"server"`
}

type AnalysisConfig struct {
	// MaxFrameWidth downscales wider frames before measuring. 0 disables.
	MaxFrameWidth int `koanf:"max_frame_width" yaml:"max_frame_width"`
}

type FFmpegConfig struct {
	BinaryPath string `koanf:"binary_path" yaml:"binary_path"`
	ProbePath  string `koanf:"probe_path" yaml:"probe_path"`
	Threads    int    `koanf:"threads" yaml:"threads"`
}

type LLMConfig struct {
	APIKey    string        `koanf:"api_key" yaml:"-"`
	BaseURL   string        `koanf:"base_url" yaml:"base_url"`
	Model     string        `koanf:"model" yaml:"model"`
	MaxTokens int           `koanf:"max_tokens" yaml:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// New returns the default configuration
func New() *Config {
	return &Config{
		LogLevel: "info",
		TempDir:  os.TempDir(),
		Analysis: AnalysisConfig{
			MaxFrameWidth: 0,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o",
			MaxTokens: 250,
			Timeout:   60 * time.Second,
		},
		Server: ServerConfig{
			Addr:              ":8000",
			MaxUploadBytes:    512 << 20,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.LLM.Model) == "":
		return fmt.Errorf("%w: llm.model must not be empty", ErrInvalidConfig)
	case c.LLM.MaxTokens <= 0:
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalidConfig)
	case c.LLM.Timeout < 0:
		return fmt.Errorf("%w: llm.timeout must not be negative", ErrInvalidConfig)
	case c.Analysis.MaxFrameWidth < 0:
		return fmt.Errorf("%w: analysis.max_frame_width must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.Server.Addr) == "":
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	case c.Server.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

// Marshal renders the configuration as YAML. The API key is never included.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".replaycoach", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return New()
}
