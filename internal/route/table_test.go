package route

import (
	"testing"
	"time"
)

func TestNew_SelfRouteInvariant(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	r, ok := tb.Get(1)
	if !ok {
		t.Fatal("self route must exist")
	}
	if r.Cost != 0 || r.NextHop != 1 || r.Changed {
		t.Fatalf("self route = %+v, want cost=0 next_hop=1 changed=false", r)
	}
}

func TestApply_AbsentInstallsRoute(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	triggered := tb.Apply(2, 1, map[int]int{3: 1}, now)
	if triggered {
		t.Fatal("a fresh install should not itself request a triggered update")
	}
	r, ok := tb.Get(3)
	if !ok {
		t.Fatal("expected route to 3 to be installed")
	}
	if r.Cost != 2 || r.NextHop != 2 || !r.Changed {
		t.Fatalf("route = %+v, want cost=2 next_hop=2 changed=true", r)
	}
}

func TestApply_AbsentIgnoredAtInfinity(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{3: 16}, now) // 16+1 saturates to 16
	if _, ok := tb.Get(3); ok {
		t.Fatal("a brand-new route at infinity must not be installed")
	}
}

func TestApply_AuthorityRuleWorsens(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now) // installs cost 2 via peer 2
	later := now.Add(time.Second)
	tb.Apply(2, 1, map[int]int{4: 10}, later) // authority worsens to 11
	r, _ := tb.Get(4)
	if r.Cost != 11 || r.NextHop != 2 {
		t.Fatalf("route = %+v, want cost=11 next_hop=2 (authority rule must be followed even when worse)", r)
	}
	if !r.Changed {
		t.Fatal("cost changed, so Changed must be true")
	}
}

func TestApply_AuthorityUnchangedRefreshesOnly(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now)
	tb.ClearChanged()
	later := now.Add(time.Second)
	triggered := tb.Apply(2, 1, map[int]int{4: 1}, later)
	if triggered {
		t.Fatal("unchanged authority re-advertisement must not trigger an update")
	}
	r, _ := tb.Get(4)
	if r.Changed {
		t.Fatal("authority re-confirming the same cost must not set Changed")
	}
	if !r.LastRefresh.Equal(later) {
		t.Fatalf("LastRefresh = %v, want refreshed to %v", r.LastRefresh, later)
	}
}

func TestApply_AuthorityStuckAtInfinityNotRefreshed(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now)
	later := now.Add(time.Second)
	tb.Apply(2, 1, map[int]int{4: 16}, later) // authority pushes to infinity
	r, _ := tb.Get(4)
	if r.Cost != 16 {
		t.Fatalf("cost = %d, want 16", r.Cost)
	}

	evenLater := later.Add(time.Second)
	tb.Apply(2, 1, map[int]int{4: 16}, evenLater) // repeated infinity
	r2, _ := tb.Get(4)
	if !r2.LastRefresh.Equal(later) {
		t.Fatalf("LastRefresh should not advance on repeated infinity advertisements, got %v want %v", r2.LastRefresh, later)
	}
}

func TestApply_NonAuthorityAdoptsStrictlyBetter(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 5, map[int]int{4: 1}, now) // cost 6 via peer 2
	tb.Apply(3, 1, map[int]int{4: 1}, now) // cost 2 via peer 3, strictly better
	r, _ := tb.Get(4)
	if r.Cost != 2 || r.NextHop != 3 {
		t.Fatalf("route = %+v, want cost=2 next_hop=3", r)
	}
}

func TestApply_NonAuthorityEqualCostDoesNotDisplace(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now) // cost 2 via peer 2, installer
	tb.Apply(3, 1, map[int]int{4: 1}, now) // same total cost via peer 3
	r, _ := tb.Get(4)
	if r.NextHop != 2 {
		t.Fatalf("equal-cost advertisement from a non-authority must not displace the incumbent, next_hop = %d want 2", r.NextHop)
	}
}

func TestApply_NonAuthorityWorseIgnored(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now) // cost 2 via peer 2
	tb.Apply(3, 10, map[int]int{4: 1}, now) // cost 11 via peer 3, worse
	r, _ := tb.Get(4)
	if r.Cost != 2 || r.NextHop != 2 {
		t.Fatalf("worse non-authority advertisement must be ignored, got %+v", r)
	}
}

func TestSweep_TimeoutToInfinity(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now)
	tb.ClearChanged()

	triggered := tb.Sweep(now.Add(200*time.Millisecond), 100*time.Millisecond, time.Hour)
	if !triggered {
		t.Fatal("expected a triggered update when a route ages past timeout")
	}
	r, _ := tb.Get(4)
	if r.Cost != 16 {
		t.Fatalf("cost = %d, want 16 after timeout", r.Cost)
	}
	if !r.Changed {
		t.Fatal("Changed must be set after timeout transition")
	}
}

func TestSweep_GarbageCollection(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Apply(2, 1, map[int]int{4: 1}, now)

	tb.Sweep(now.Add(120*time.Millisecond), 100*time.Millisecond, 50*time.Millisecond)
	if _, ok := tb.Get(4); !ok {
		t.Fatal("route should still exist before garbage time elapses past timeout")
	}

	tb.Sweep(now.Add(500*time.Millisecond), 100*time.Millisecond, 50*time.Millisecond)
	if _, ok := tb.Get(4); ok {
		t.Fatal("route should be garbage collected once age exceeds timeout+garbage")
	}
}

func TestSweep_SelfRouteExempt(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	tb.Sweep(now.Add(24*time.Hour), time.Second, time.Second)
	r, ok := tb.Get(1)
	if !ok {
		t.Fatal("self route must never be garbage collected")
	}
	if r.Cost != 0 || r.NextHop != 1 {
		t.Fatalf("self route mutated by sweep: %+v", r)
	}
}

func TestApply_Idempotent(t *testing.T) {
	now := time.Now()
	tb := New(1, now)
	entries := map[int]int{4: 1, 5: 2}
	tb.Apply(2, 1, entries, now)
	first := snapshotCosts(tb)
	tb.Apply(2, 1, entries, now)
	second := snapshotCosts(tb)
	if len(first) != len(second) {
		t.Fatalf("table size changed across idempotent applies: %d vs %d", len(first), len(second))
	}
	for dest, cost := range first {
		if second[dest] != cost {
			t.Fatalf("cost for %d changed across idempotent applies: %d vs %d", dest, cost, second[dest])
		}
	}
}

func snapshotCosts(tb *Table) map[int]int {
	out := make(map[int]int)
	for _, row := range tb.Snapshot() {
		out[row.Destination] = row.Cost
	}
	return out
}
