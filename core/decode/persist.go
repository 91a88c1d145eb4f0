package decode

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/rebalance/core/records"
)

// Persist stamps every record of res with runID and the current time and
// appends them to store in one call.
func Persist(ctx context.Context, store records.Store, runID string, res *Result) error {
	if store == nil {
		return fmt.Errorf("decode: nil record store")
	}
	now := time.Now().UTC()
	recs := make([]records.Record, len(res.Records))
	for i, r := range res.Records {
		r.RunID = runID
		r.Timestamp = now
		recs[i] = r
	}
	if err := store.Append(ctx, recs...); err != nil {
		return fmt.Errorf("persist %d records: %w", len(recs), err)
	}
	return nil
}
