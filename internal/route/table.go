// Package route implements the forwarding table: a flat map from
// destination router-id to a Route record, the update rule of spec.md
// §4.2, and the timer sweep of spec.md §4.3.
//
// The table is owned exclusively by the event loop (internal/engine); it
// has no internal locking because nothing else ever mutates it
// concurrently (spec.md §5).
package route

import (
	"time"

	"github.com/routesim/ripd/internal/ripwire"
)

// Route is one row of the forwarding table.
type Route struct {
	Cost         int
	NextHop      int
	LastRefresh  time.Time
	Changed      bool
}

// Table is the forwarding table for one router instance.
type Table struct {
	selfID int
	rows   map[int]*Route
}

// New creates a table with only the self-route installed, per spec.md §3:
// cost 0, next_hop == selfID, changed == false.
func New(selfID int, now time.Time) *Table {
	t := &Table{
		selfID: selfID,
		rows:   make(map[int]*Route),
	}
	t.rows[selfID] = &Route{Cost: 0, NextHop: selfID, LastRefresh: now, Changed: false}
	return t
}

// SelfID returns the router-id this table belongs to.
func (t *Table) SelfID() int {
	return t.selfID
}

// Get returns a copy of the row for dest, if present.
func (t *Table) Get(dest int) (Route, bool) {
	r, ok := t.rows[dest]
	if !ok {
		return Route{}, false
	}
	return *r, true
}

// Len returns the number of rows currently in the table (including self).
func (t *Table) Len() int {
	return len(t.rows)
}

// Snapshot returns the rows of the table as ripwire.Row values, suitable
// for Encode. Order is unspecified; callers that need determinism should
// sort the result (internal/engine sorts by destination for reproducible
// encodes).
func (t *Table) Snapshot() []ripwire.Row {
	out := make([]ripwire.Row, 0, len(t.rows))
	for dest, r := range t.rows {
		out = append(out, ripwire.Row{
			Destination: dest,
			Cost:        r.Cost,
			NextHop:     r.NextHop,
			Changed:     r.Changed,
		})
	}
	return out
}

// ClearChanged resets the Changed flag on every row. Called after a
// broadcast has included (or considered) all rows, per spec.md §4.4 steps
// 6-7.
func (t *Table) ClearChanged() {
	for _, r := range t.rows {
		r.Changed = false
	}
}

// ClearChangedFor resets the Changed flag only on the given destinations.
// internal/engine does not call it: it uses ClearChanged after triggered
// updates as well, which has the same effect because a triggered update
// includes exactly the rows whose Changed flag is set.
func (t *Table) ClearChangedFor(dests []int) {
	for _, d := range dests {
		if r, ok := t.rows[d]; ok {
			r.Changed = false
		}
	}
}

// Apply applies one decoded advertisement from sender (a configured
// neighbour reachable at cost linkCost) against the table, implementing
// the three cases of spec.md §4.2. It returns true if this advertisement
// should cause a triggered update to be scheduled.
func (t *Table) Apply(sender int, linkCost int, entries map[int]int, now time.Time) (triggered bool) {
	for dest, advCost := range entries {
		candidate := advCost + linkCost
		if candidate > ripwire.Infinity {
			candidate = ripwire.Infinity
		}

		current, exists := t.rows[dest]

		switch {
		case !exists:
			if candidate < ripwire.Infinity {
				t.rows[dest] = &Route{
					Cost:        candidate,
					NextHop:     sender,
					LastRefresh: now,
					Changed:     true,
				}
			}
			// candidate == Infinity: ignore, no route installed.

		case current.NextHop == sender:
			// Authority rule: the current route's next hop is the sender,
			// so we follow it even if the metric worsens.
			if candidate != current.Cost {
				current.Cost = candidate
				current.LastRefresh = now
				current.Changed = true
				if candidate == ripwire.Infinity {
					triggered = true
				}
			} else if current.Cost < ripwire.Infinity {
				// Authority re-confirms the same reachable cost: refresh
				// the timer only. A route stuck at infinity is NOT
				// refreshed by repeated infinity-advertisements, so its
				// garbage timer keeps running (spec.md §4.2 case 2).
				current.LastRefresh = now
			}

		default:
			// Not the authority: only adopt a strictly better route. No
			// tie-break toward the sender on equal cost (spec.md §9).
			if candidate < current.Cost {
				current.Cost = candidate
				current.NextHop = sender
				current.LastRefresh = now
				current.Changed = true
			}
		}
	}
	return triggered
}

// Sweep ages every non-self row: rows older than timeout become
// unreachable (cost = infinity, changed = true, triggering an update);
// rows older than timeout+garbage are deleted entirely. Returns true if
// any row transitioned to infinity (a triggered update should be
// scheduled).
func (t *Table) Sweep(now time.Time, timeout, garbage time.Duration) (triggered bool) {
	var toDelete []int
	for dest, r := range t.rows {
		if dest == t.selfID {
			continue
		}
		age := now.Sub(r.LastRefresh)
		if age > timeout && r.Cost < ripwire.Infinity {
			r.Cost = ripwire.Infinity
			r.Changed = true
			triggered = true
		}
		if age > timeout+garbage {
			toDelete = append(toDelete, dest)
		}
	}
	for _, dest := range toDelete {
		delete(t.rows, dest)
	}
	return triggered
}
