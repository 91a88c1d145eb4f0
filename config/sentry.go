package config

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/model"
)

// SentryConfig defines settings for Sentry error monitoring. Reporting is
// disabled when DSN is empty.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("%w: sentry.traces_sample_rate must be in [0,1]", model.ErrConfiguration)
	}
	return nil
}
