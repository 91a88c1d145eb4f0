package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/infra/ingest"
)

type NetworkDef struct {
	Clusters     int     `yaml:"clusters"`
	TLoad        float64 `yaml:"t_load"`
	TimeBudget   float64 `yaml:"time_budget"`
	NetworkSize  int     `yaml:"network_size,omitempty"`
	SurplusRatio float64 `yaml:"surplus_ratio,omitempty"`
	DeficitRatio float64 `yaml:"deficit_ratio,omitempty"`
	Seed         int64   `yaml:"seed,omitempty"`
}

type StationDef struct {
	Current int `yaml:"current"`
	Target  int `yaml:"target"`
}

type UtilityDef struct {
	Origin int     `yaml:"origin"`
	Dest   int     `yaml:"dest"`
	Step   int     `yaml:"step"`
	Delta  float64 `yaml:"delta"`
}

type TransferDef struct {
	Origin int `yaml:"origin"`
	Dest   int `yaml:"dest"`
	Steps  int `yaml:"steps"`
}

type Expected struct {
	// Error is the model.Kind of the expected failure; empty means success.
	Error     string        `yaml:"error,omitempty"`
	Objective float64       `yaml:"objective"`
	Transfers []TransferDef `yaml:"transfers,omitempty"`
	// Absent lists [origin, dest] pairs that must have no transfer variable.
	Absent [][2]int `yaml:"absent,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Network     NetworkDef   `yaml:"network"`
	Stations    []StationDef `yaml:"stations"`
	Travel      [][]float64  `yaml:"travel"`
	Utility     []UtilityDef `yaml:"utility"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// NetworkConfig returns the scalar parameters; NetworkSize defaults to the
// number of listed stations.
func (s *Scenario) NetworkConfig() model.NetworkConfig {
	n := s.Network.NetworkSize
	if n == 0 {
		n = len(s.Stations)
	}
	return model.NetworkConfig{
		NetworkSize:  n,
		NumClusters:  s.Network.Clusters,
		TLoad:        s.Network.TLoad,
		TimeBudget:   s.Network.TimeBudget,
		SurplusRatio: s.Network.SurplusRatio,
		DeficitRatio: s.Network.DeficitRatio,
		RandomState:  s.Network.Seed,
	}
}

// Tables converts the inline data to the form the ingest layer produces.
func (s *Scenario) Tables() (*ingest.Tables, error) {
	n := len(s.Travel)
	flat := make([]float64, 0, n*n)
	for _, row := range s.Travel {
		flat = append(flat, row...)
	}
	tt, err := model.NewTravelTimes(n, flat)
	if err != nil {
		return nil, err
	}
	out := &ingest.Tables{Travel: tt}
	for i, st := range s.Stations {
		out.Stations = append(out.Stations, model.Station{SourceID: i + 1, Current: st.Current, Target: st.Target})
	}
	for _, u := range s.Utility {
		out.Utility = append(out.Utility, model.UtilityRow{Origin: u.Origin, Dest: u.Dest, Step: u.Step, Delta: u.Delta})
	}
	return out, nil
}
