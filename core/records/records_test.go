package records

import (
	"context"
	"testing"
	"time"
)

func TestQueryMatch(t *testing.T) {
	now := time.Unix(1000, 0)
	r := Record{RunID: "r1", Variable: "x[1,2,1,1]", Value: 1, Timestamp: now}
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty", Query{}, true},
		{"run", Query{RunID: "r1"}, true},
		{"other run", Query{RunID: "r2"}, false},
		{"prefix", Query{Prefix: "x["}, true},
		{"wrong prefix", Query{Prefix: "z["}, false},
		{"long prefix", Query{Prefix: "x[1,2,1,1]+"}, false},
		{"window", Query{Start: now.Add(-time.Second), End: now.Add(time.Second)}, true},
		{"before window", Query{Start: now.Add(time.Second)}, false},
		{"after window", Query{End: now.Add(-time.Second)}, false},
	}
	for _, tt := range tests {
		if got := tt.q.Match(r); got != tt.want {
			t.Errorf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	var s MemoryStore
	ctx := context.Background()
	if err := s.Append(ctx, Record{RunID: "a", Variable: "z[1,1]"}, Record{RunID: "b", Variable: "s[1]"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := s.Query(ctx, Query{RunID: "b"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Variable != "s[1]" {
		t.Fatalf("unexpected records %+v", out)
	}
}
