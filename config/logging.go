package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/rebalance/core/model"
)

// LoggingConfig sets the minimum level of the application logs.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	c.Level = strings.ToLower(c.Level)
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: unknown logging level %q", model.ErrConfiguration, c.Level)
	}
}
