package config

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
)

// OutputConfig selects where the raw records and the transfer plan go.
type OutputConfig struct {
	// Records configures the record store; csv writes the flat dump.
	Records factory.ModuleConfig `json:"records"`
	// PlanPath is optional; no plan file is written when empty.
	PlanPath   string `json:"plan_path"`
	PlanFormat string `json:"plan_format"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Records.Type == "" {
		c.Records.Type = "csv"
	}
	if c.Records.Type == "csv" {
		if c.Records.Conf == nil {
			c.Records.Conf = map[string]any{}
		}
		if _, ok := c.Records.Conf["path"]; !ok {
			c.Records.Conf["path"] = "data/results/output.csv"
		}
	}
	if c.PlanFormat == "" {
		c.PlanFormat = "csv"
	}
}

func (c OutputConfig) Validate() error {
	if c.PlanFormat != "csv" && c.PlanFormat != "json" {
		return fmt.Errorf("%w: output.plan_format must be csv or json, got %q", model.ErrConfiguration, c.PlanFormat)
	}
	return nil
}
