// Package config loads the run configuration. Values come from a yaml or json
// file, overridden by K_-prefixed environment variables where a double
// underscore separates nesting levels (K_NETWORK__NUM_CLUSTERS=3).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/infra/mqtt"
)

type Config struct {
	Network model.NetworkConfig `json:"network"`
	Data    DataConfig          `json:"data"`
	Solver  SolverConfig        `json:"solver"`
	Output  OutputConfig        `json:"output"`
	Metrics metrics.Config      `json:"metrics"`
	Logging LoggingConfig       `json:"logging"`
	Sentry  SentryConfig        `json:"sentry"`
	MQTT    mqtt.Config         `json:"mqtt"`
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported config format: %s", model.ErrConfiguration, ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's unset values.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	c.Solver.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	return errors.Join(
		c.Network.Validate(),
		c.Data.Validate(),
		c.Solver.Validate(),
		c.Output.Validate(),
		c.Logging.Validate(),
		c.Sentry.Validate(),
		c.MQTT.Validate(),
	)
}
