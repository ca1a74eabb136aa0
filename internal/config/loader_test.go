package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LLM.Model, convey.ShouldEqual, "gpt-4o")
				convey.So(cfg.LLM.MaxTokens, convey.ShouldEqual, 250)
				convey.So(cfg.LLM.Timeout, convey.ShouldEqual, 60*time.Second)
				convey.So(cfg.Server.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.Server.MaxUploadBytes, convey.ShouldEqual, int64(512<<20))
				convey.So(cfg.FFmpeg.BinaryPath, convey.ShouldEqual, "ffmpeg")
				convey.So(cfg.Analysis.MaxFrameWidth, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("REPLAYCOACH_LOG_LEVEL", "debug")
			t.Setenv("REPLAYCOACH_LLM__MODEL", "gpt-4o-mini")
			t.Setenv("REPLAYCOACH_LLM__MAX_TOKENS", "400")
			t.Setenv("REPLAYCOACH_LLM__TIMEOUT", "15s")
			t.Setenv("REPLAYCOACH_SERVER__ADDR", ":9090")
			t.Setenv("REPLAYCOACH_ANALYSIS__MAX_FRAME_WIDTH", "320")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LLM.Model, convey.ShouldEqual, "gpt-4o-mini")
				convey.So(cfg.LLM.MaxTokens, convey.ShouldEqual, 400)
				convey.So(cfg.LLM.Timeout, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.Server.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Analysis.MaxFrameWidth, convey.ShouldEqual, 320)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yamlContent := `
log_level: warn
temp_dir: /var/tmp/replaycoach
ffmpeg:
  binary_path: /opt/ffmpeg/bin/ffmpeg
  threads: 2
llm:
  model: gpt-4.1
  base_url: http://localhost:11434/v1
server:
  max_upload_bytes: 1048576
`
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o644), convey.ShouldBeNil)

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then file values replace defaults and the rest are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.TempDir, convey.ShouldEqual, "/var/tmp/replaycoach")
				convey.So(cfg.FFmpeg.BinaryPath, convey.ShouldEqual, "/opt/ffmpeg/bin/ffmpeg")
				convey.So(cfg.FFmpeg.ProbePath, convey.ShouldEqual, "ffprobe")
				convey.So(cfg.FFmpeg.Threads, convey.ShouldEqual, 2)
				convey.So(cfg.LLM.Model, convey.ShouldEqual, "gpt-4.1")
				convey.So(cfg.LLM.BaseURL, convey.ShouldEqual, "http://localhost:11434/v1")
				convey.So(cfg.LLM.MaxTokens, convey.ShouldEqual, 250)
				convey.So(cfg.Server.MaxUploadBytes, convey.ShouldEqual, int64(1048576))
			})

			convey.Convey("And env vars still take precedence over the file", func() {
				t.Setenv("REPLAYCOACH_LLM__MODEL", "from-env")

				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LLM.Model, convey.ShouldEqual, "from-env")
			})
		})

		convey.Convey("When the explicit config file is missing", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "nope.yaml"))

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the resulting config is invalid", func() {
			t.Setenv("REPLAYCOACH_LLM__MAX_TOKENS", "0")

			_, err := config.Load(ctx, "")

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_tokens")
			})
		})

		convey.Convey("When the API key is only present as OPENAI_API_KEY", func() {
			t.Setenv("OPENAI_API_KEY", "sk-test")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it is picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LLM.APIKey, convey.ShouldEqual, "sk-test")
			})

			convey.Convey("And the prefixed variable wins", func() {
				t.Setenv("REPLAYCOACH_LLM__API_KEY", "sk-prefixed")

				cfg, err := config.Load(ctx, "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LLM.APIKey, convey.ShouldEqual, "sk-prefixed")
			})
		})
	})
}

func TestConfigMarshal(t *testing.T) {
	convey.Convey("Given a config with an API key", t, func() {
		cfg := config.New()
		cfg.LLM.APIKey = "sk-secret"

		convey.Convey("When it is saved", func() {
			path := filepath.Join(t.TempDir(), "out.yaml")
			convey.So(cfg.Save(path), convey.ShouldBeNil)

			data, err := os.ReadFile(path)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the key is omitted and settings are readable", func() {
				convey.So(string(data), convey.ShouldNotContainSubstring, "sk-secret")
				convey.So(string(data), convey.ShouldContainSubstring, "model: gpt-4o")
				convey.So(string(data), convey.ShouldContainSubstring, "timeout: 1m0s")
			})
		})
	})
}

func TestFromContext(t *testing.T) {
	convey.Convey("Given a context without config", t, func() {
		cfg := config.FromContext(context.Background())

		convey.Convey("Then defaults are returned", func() {
			convey.So(cfg.LLM.Model, convey.ShouldEqual, "gpt-4o")
		})

		convey.Convey("And a stored config round-trips", func() {
			stored := config.New()
			stored.LogLevel = "error"
			ctx := config.WithConfig(context.Background(), stored)
			convey.So(config.FromContext(ctx), convey.ShouldEqual, stored)
		})
	})
}

// clearConfigEnvVars blanks every variable that would leak into Load.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
	t.Setenv(config.EnvAPIKey, "")
	_ = os.Unsetenv(config.EnvAPIKey)
}
