package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	stations := writeFile(t, dir, "stations.csv", "CurrentInventory,Optimal Inventory\n10,4\n2,8\n5,5\n5,5\n")
	travel := writeFile(t, dir, "travel.csv", ",1,2,3,4\n1,0,1,1,1\n2,1,0,1,1\n3,1,1,0,1\n4,1,1,1,0\n")
	utility := writeFile(t, dir, "utility.csv", "from_surplus,to_deficit,transfers,Delta UDF\n1,2,1,5\n1,2,2,3\n")
	cfg := `network:
  network_size: 4
  num_clusters: 1
  t_load: 1
  T: 100
data:
  station_data_path: ` + stations + `
  travel_times_path: ` + travel + `
  delta_marginal_path: ` + utility + `
solver:
  time_limit: 10
output:
  records:
    type: csv
    conf:
      path: ` + filepath.Join(dir, "out.csv") + `
  plan_path: ` + filepath.Join(dir, "plan.csv") + `
logging:
  level: error
`
	return writeFile(t, dir, "config.yaml", cfg)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := setup(t)
	out, err := execute(t, "validate", "-c", path, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "stations=4 surplus=1 deficit=1 clusters=1 pairs=1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommand(t *testing.T) {
	path := setup(t)
	out, err := execute(t, "-c", path, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "total=8.0000") {
		t.Fatalf("unexpected output %q", out)
	}
	dir := filepath.Dir(path)
	plan, err := os.ReadFile(filepath.Join(dir, "plan.csv"))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(string(plan), "1,1,2,2,8") {
		t.Fatalf("unexpected plan %q", plan)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.csv")); err != nil {
		t.Fatalf("records: %v", err)
	}
}

func TestMissingConfig(t *testing.T) {
	if _, err := execute(t, "validate", "-c", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
