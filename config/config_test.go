package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/rebalance/core/model"
)

const sample = `network:
  network_size: 40
  num_clusters: 3
  t_load: 2
  T: 120
  surplus_ratio: 0.3
  deficit_ratio: 0.3
  random_state: 42
data:
  station_data_path: data/stations.csv
  travel_times_path: data/travel.csv
  delta_marginal_path: data/delta.csv
  columns:
    current: s0
solver:
  time_limit: 30
  strict_utility: true
output:
  records:
    type: sqlite
    conf:
      dsn: runs.db
  plan_path: plan.json
  plan_format: json
metrics:
  sinks:
    - type: "nop"
mqtt:
  broker: "tcp://localhost:1883"
  topic_prefix: "rebalance/plans"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"network_size", cfg.Network.NetworkSize, 40},
		{"num_clusters", cfg.Network.NumClusters, 3},
		{"T", cfg.Network.TimeBudget, 120.0},
		{"random_state", cfg.Network.RandomState, int64(42)},
		{"station path", cfg.Data.StationDataPath, "data/stations.csv"},
		{"custom column", cfg.Data.Columns.Current, "s0"},
		{"default column", cfg.Data.Columns.Delta, "Delta UDF"},
		{"time_limit", cfg.Solver.Limit(), 30 * time.Second},
		{"integrality default", cfg.Solver.IntegralityTol, 1e-6},
		{"strict", cfg.Solver.StrictUtility, true},
		{"engine default", cfg.Solver.Engine, "lpsolve"},
		{"records", cfg.Output.Records.Type, "sqlite"},
		{"plan format", cfg.Output.PlanFormat, "json"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"logging default", cfg.Logging.Level, "info"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"topic prefix", cfg.MQTT.TopicPrefix, "rebalance/plans"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("K_NETWORK__NUM_CLUSTERS", "5")
	t.Setenv("K_LOGGING__LEVEL", "debug")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Network.NumClusters != 5 {
		t.Errorf("num_clusters = %d", cfg.Network.NumClusters)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestLoad_JSONAndDefaultRecords(t *testing.T) {
	data := `{"network":{"network_size":4,"num_clusters":1,"t_load":1,"T":10},
"data":{"station_data_path":"a","travel_times_path":"b","delta_marginal_path":"c"}}`
	cfg, err := Load(writeConfig(t, "config.json", data))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Output.Records.Type != "csv" || cfg.Output.Records.Conf["path"] != "data/results/output.csv" {
		t.Fatalf("unexpected records config %+v", cfg.Output.Records)
	}
	if cfg.Solver.Limit() != time.Minute {
		t.Fatalf("time limit = %s", cfg.Solver.Limit())
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"clusters":  "network: {network_size: 4, num_clusters: 0}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\n",
		"ratios":    "network: {network_size: 4, num_clusters: 1, surplus_ratio: 0.7, deficit_ratio: 0.6}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\n",
		"paths":     "network: {network_size: 4, num_clusters: 1}\n",
		"level":     "network: {network_size: 4, num_clusters: 1}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\nlogging: {level: loud}\n",
		"time":      "network: {network_size: 4, num_clusters: 1}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\nsolver: {time_limit: -1}\n",
		"plan":      "network: {network_size: 4, num_clusters: 1}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\noutput: {plan_format: xml}\n",
		"budget":    "network: {network_size: 4, num_clusters: 1, T: -1}\ndata: {station_data_path: a, travel_times_path: b, delta_marginal_path: c}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", data))
			if !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
	if _, err := Load(writeConfig(t, "config.toml", "")); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("K_SOLVER__TIME_LIMIT=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("K_SOLVER__TIME_LIMIT", "")
	_ = os.Unsetenv("K_SOLVER__TIME_LIMIT")
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("K_SOLVER__TIME_LIMIT"); got != "7" {
		t.Fatalf("env = %q", got)
	}
}
