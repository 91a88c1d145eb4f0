package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/rebalance/core/decode"
)

// ClusterPlan is the message published for one cluster of a decoded run.
type ClusterPlan struct {
	RunID     string            `json:"run_id"`
	Cluster   int               `json:"cluster"`
	Stations  []int             `json:"stations"`
	Travel    float64           `json:"travel_minutes"`
	Moves     []decode.Transfer `json:"moves"`
	Timestamp time.Time         `json:"timestamp"`
}

// PlanPublisher sends cluster plans to the field crews.
type PlanPublisher interface {
	PublishPlan(ctx context.Context, plan ClusterPlan) error
}

// NopPublisher discards every plan.
type NopPublisher struct{}

func (NopPublisher) PublishPlan(context.Context, ClusterPlan) error { return nil }

// Plans splits res into one plan per non-empty cluster, ordered by cluster id.
func Plans(runID string, res *decode.Result, now time.Time) []ClusterPlan {
	if res == nil {
		return nil
	}
	byCluster := make(map[int][]decode.Transfer)
	for _, mv := range res.Moves {
		byCluster[mv.Cluster] = append(byCluster[mv.Cluster], mv)
	}
	ids := res.ClusterIDs()
	plans := make([]ClusterPlan, 0, len(ids))
	for _, v := range ids {
		plans = append(plans, ClusterPlan{
			RunID:     runID,
			Cluster:   v,
			Stations:  append([]int(nil), res.Clusters[v]...),
			Travel:    res.Travel[v],
			Moves:     byCluster[v],
			Timestamp: now.UTC(),
		})
	}
	return plans
}
