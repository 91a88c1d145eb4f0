package model

import "fmt"

// NetworkConfig holds the scalar parameters of one rebalancing run.
type NetworkConfig struct {
	NetworkSize  int     `json:"network_size"`
	NumClusters  int     `json:"num_clusters"`
	TLoad        float64 `json:"t_load"`
	TimeBudget   float64 `json:"T"`
	SurplusRatio float64 `json:"surplus_ratio"`
	DeficitRatio float64 `json:"deficit_ratio"`
	RandomState  int64   `json:"random_state"`
}

// Validate checks the scalar parameters. Ratios are only relevant when more
// station rows than NetworkSize are supplied but are always range-checked.
func (c NetworkConfig) Validate() error {
	if c.NetworkSize < 1 {
		return fmt.Errorf("%w: network_size must be >= 1, got %d", ErrConfiguration, c.NetworkSize)
	}
	if c.NumClusters < 1 {
		return fmt.Errorf("%w: num_clusters must be >= 1, got %d", ErrConfiguration, c.NumClusters)
	}
	if c.TLoad < 0 {
		return fmt.Errorf("%w: t_load must be non-negative", ErrConfiguration)
	}
	if c.TimeBudget < 0 {
		return fmt.Errorf("%w: T must be non-negative", ErrConfiguration)
	}
	if c.SurplusRatio < 0 || c.SurplusRatio > 1 || c.DeficitRatio < 0 || c.DeficitRatio > 1 {
		return fmt.Errorf("%w: sampling ratios must be in [0,1]", ErrConfiguration)
	}
	if c.SurplusRatio+c.DeficitRatio > 1 {
		return fmt.Errorf("%w: surplus_ratio + deficit_ratio must not exceed 1", ErrConfiguration)
	}
	return nil
}
