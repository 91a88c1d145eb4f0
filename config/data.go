package config

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/infra/ingest"
)

// DataConfig locates the input tables and names their columns.
type DataConfig struct {
	StationDataPath   string         `json:"station_data_path"`
	TravelTimesPath   string         `json:"travel_times_path"`
	DeltaMarginalPath string         `json:"delta_marginal_path"`
	Columns           ingest.Columns `json:"columns"`
}

func (c *DataConfig) SetDefaults() {
	c.Columns = c.Columns.WithDefaults()
}

// Validate requires the three paths.
func (c DataConfig) Validate() error {
	for name, p := range map[string]string{
		"station_data_path":   c.StationDataPath,
		"travel_times_path":   c.TravelTimesPath,
		"delta_marginal_path": c.DeltaMarginalPath,
	} {
		if p == "" {
			return fmt.Errorf("%w: data.%s is required", model.ErrConfiguration, name)
		}
	}
	return nil
}

// Paths returns the input locations in the form the reader expects.
func (c DataConfig) Paths() ingest.Paths {
	return ingest.Paths{Stations: c.StationDataPath, Travel: c.TravelTimesPath, Utility: c.DeltaMarginalPath}
}
