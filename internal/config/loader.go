package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces environment overrides. A double underscore
	// separates nested keys: REPLAYCOACH_LLM__MAX_TOKENS -> llm.max_tokens.
	EnvPrefix = "REPLAYCOACH_"

	// EnvConfigPath names the YAML file to load when --config is not given.
	EnvConfigPath = EnvPrefix + "CONFIG"

	// EnvAPIKey is consulted when llm.api_key is not configured.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file: path, else $REPLAYCOACH_CONFIG, else a discovered config.yaml
//  3. env (prefix REPLAYCOACH_)
func Load(_ context.Context, path string) (*Config, error) {
	cfg := New()
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		path = findConfigFile()
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(EnvAPIKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
