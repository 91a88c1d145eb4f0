package model

import "testing"

func TestStationKind(t *testing.T) {
	cases := []struct {
		s    Station
		kind StationKind
		exc  int
		shrt int
	}{
		{Station{Current: 10, Target: 4}, Surplus, 6, 0},
		{Station{Current: 2, Target: 8}, Deficit, 0, 6},
		{Station{Current: 5, Target: 5}, Balanced, 0, 0},
	}
	for _, c := range cases {
		if got := c.s.Kind(); got != c.kind {
			t.Errorf("kind for %+v: expected %s got %s", c.s, c.kind, got)
		}
		if got := c.s.Excess(); got != c.exc {
			t.Errorf("excess for %+v: expected %d got %d", c.s, c.exc, got)
		}
		if got := c.s.Shortfall(); got != c.shrt {
			t.Errorf("shortfall for %+v: expected %d got %d", c.s, c.shrt, got)
		}
	}
}

func TestStationValidate(t *testing.T) {
	if err := (Station{Current: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative inventory")
	}
	if err := (Station{Current: 1, Target: 2}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
