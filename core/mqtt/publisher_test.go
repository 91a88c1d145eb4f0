package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/rebalance/core/decode"
)

func TestPlans(t *testing.T) {
	res := &decode.Result{
		Clusters: map[int][]int{2: {3, 4}, 1: {1, 2}},
		Travel:   map[int]float64{1: 3, 2: 1.5},
		Moves: []decode.Transfer{
			{Cluster: 1, Origin: 1, Dest: 2, Steps: 2, Utility: 8},
		},
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	plans := Plans("run-1", res, now)
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].Cluster != 1 || plans[1].Cluster != 2 {
		t.Fatalf("plans not ordered by cluster: %+v", plans)
	}
	if len(plans[0].Moves) != 1 || len(plans[1].Moves) != 0 {
		t.Fatalf("moves not split by cluster: %+v", plans)
	}
	if plans[1].Travel != 1.5 || plans[0].RunID != "run-1" {
		t.Fatalf("unexpected plan %+v", plans[1])
	}
	if plans[0].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not UTC")
	}
	res.Clusters[1][0] = 99
	if plans[0].Stations[0] != 1 {
		t.Fatalf("plan shares station slice with result")
	}
}

func TestPlansNil(t *testing.T) {
	if Plans("r", nil, time.Now()) != nil {
		t.Fatal("expected nil")
	}
	if err := (NopPublisher{}).PublishPlan(context.Background(), ClusterPlan{}); err != nil {
		t.Fatal(err)
	}
}
