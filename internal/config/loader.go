package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// DATATIDE_FAIL_FAST=true.
const envPrefix = "DATATIDE_"

// Load reads a suite configuration with layered precedence: defaults, the
// YAML file, DATATIDE_* environment variables, then explicitly set CLI
// flags. A nil flag set skips the flag layer.
func Load(path string, flags *pflag.FlagSet) (*SuiteConfig, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"dataset.format": DefaultDatasetFormat,
		"logger.path":    DefaultLoggerPath,
		"fail_fast":      false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Suite file
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading suite file %s: %w", path, err)
	}

	// 3. Environment variables: DATATIDE_FAIL_FAST -> fail_fast
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority), only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "no_fail_fast":
				return "fail_fast", false
			case "logger_path":
				return "logger.path", posflag.FlagVal(flags, f)
			case "include_tag", "exclude_tag", "override_severity", "json":
				// Merged explicitly by the CLI layer, not through koanf.
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg SuiteConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode suite config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
