package metrics

import "github.com/kilianp07/rebalance/core/factory"

// Config lists the metric sinks of a run.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
