// Package engine implements the single-threaded reactor of spec.md §4.4:
// the event loop that multiplexes socket readiness and timers, applies the
// route-update rule of internal/route against incoming datagrams, and
// drives periodic and triggered broadcasts through internal/ripwire.
//
// The engine is the sole owner of the forwarding table, the neighbour set,
// and all timer state; nothing else mutates them while Run is executing
// (spec.md §5). Within one iteration of the loop, exactly one readiness or
// timer event is processed to completion before the next is considered.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/routesim/ripd/internal/metrics"
	"github.com/routesim/ripd/internal/neighbour"
	"github.com/routesim/ripd/internal/ripwire"
	"github.com/routesim/ripd/internal/route"
	"github.com/routesim/ripd/internal/socketbank"
)

const (
	// tickInterval bounds how long a loop iteration can go without
	// servicing timers when no datagram arrives (spec.md §4.4 step 2:
	// "small enough ... to service timers promptly").
	tickInterval = 50 * time.Millisecond

	// periodicJitterFraction is the ±20% spread applied to the periodic
	// broadcast interval (spec.md §4.4 step 6).
	periodicJitterFraction = 0.2

	// triggeredDampMin/Max bound the 1-5s triggered-update damping timer
	// (spec.md §4.4 step 7, §5).
	triggeredDampMin = 1 * time.Second
	triggeredDampMax = 5 * time.Second
)

// Transport is the subset of internal/socketbank.Bank the engine depends
// on: a channel of received datagrams and a way to send to a peer's port.
type Transport interface {
	Packets() <-chan socketbank.Datagram
	SendTo(port int, payload []byte) error
}

// TableObserver is notified after every table mutation and every
// broadcast. It exists so that a console pretty-printer (out of scope per
// spec.md §1) or other external collaborator can watch table state without
// the engine depending on any presentation concern.
type TableObserver interface {
	ObserveTable(t *route.Table)
}

// Engine is the protocol reactor for one router instance.
type Engine struct {
	table      *route.Table
	neighbours *neighbour.Set
	transport  Transport
	logger     *zap.Logger
	observer   TableObserver

	timeout        time.Duration
	garbage        time.Duration
	periodicUpdate time.Duration

	lastTick      time.Time
	periodicTimer time.Duration
	triggeredDamp time.Duration
	triggeredPend bool

	ready bool
}

// New constructs an Engine with the self-route installed, per spec.md §3.
// The caller is responsible for starting transport.Serve (if applicable)
// before calling Run.
func New(selfID int, neighbours *neighbour.Set, transport Transport, timeout, garbage, periodicUpdate time.Duration, logger *zap.Logger, observer TableObserver) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		table:          route.New(selfID, time.Now()),
		neighbours:     neighbours,
		transport:      transport,
		timeout:        timeout,
		garbage:        garbage,
		periodicUpdate: periodicUpdate,
		logger:         logger,
		observer:       observer,
	}
}

// Ready reports whether the engine has completed its first broadcast. It
// backs the /readyz endpoint of internal/httpstatus.
func (e *Engine) Ready() bool {
	return e.ready
}

// Table exposes the forwarding table for read-only inspection, e.g. by
// tests; the engine remains the only mutator.
func (e *Engine) Table() *route.Table {
	return e.table
}

// Run executes the event loop until ctx is cancelled or a fatal error
// occurs. A fatal error (currently: any send failure, per spec.md §7)
// causes Run to return without attempting further sends; the caller is
// responsible for closing the transport.
func (e *Engine) Run(ctx context.Context) error {
	now := time.Now()
	e.lastTick = now
	e.periodicTimer = e.periodicUpdate
	e.triggeredDamp = 0

	// Initial actions: the self-route is already installed by New; send a
	// full periodic update to every neighbour before entering the loop
	// (spec.md §4.4 "Initial actions on startup").
	if err := e.broadcast(now, false); err != nil {
		return err
	}
	e.periodicTimer = e.jitteredPeriod()
	e.table.ClearChanged()
	e.notifyObserver()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case dg, ok := <-e.transport.Packets():
			if !ok {
				return fmt.Errorf("engine: transport closed")
			}
			if err := e.step(time.Now(), func(now time.Time) { e.handleDatagram(dg, now) }); err != nil {
				return err
			}

		case <-ticker.C:
			if err := e.step(time.Now(), nil); err != nil {
				return err
			}
		}
	}
}

// step runs exactly one iteration body: the optional event handler, then
// the timer sweep, timer decrement, and periodic/triggered broadcast
// checks of spec.md §4.4 steps 3-7. It is the atomic unit of the loop: the
// caller must not call step again until this one returns.
func (e *Engine) step(now time.Time, handle func(time.Time)) error {
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now

	if handle != nil {
		handle(now)
	}

	if e.sweepTable(now) {
		e.triggeredPend = true
	}

	e.periodicTimer -= elapsed
	if e.periodicTimer < 0 {
		e.periodicTimer = 0
	}
	e.triggeredDamp -= elapsed
	if e.triggeredDamp < 0 {
		e.triggeredDamp = 0
	}

	switch {
	case e.periodicTimer <= 0:
		if err := e.broadcast(now, false); err != nil {
			return err
		}
		e.periodicTimer = e.jitteredPeriod()
		e.table.ClearChanged()

	case e.triggeredDamp <= 0 && e.triggeredPend:
		if err := e.broadcast(now, true); err != nil {
			return err
		}
		e.triggeredPend = false
		e.triggeredDamp = randomDamp()
		e.table.ClearChanged()
	}

	metrics.Routes.Set(float64(e.table.Len()))
	e.notifyObserver()
	return nil
}

// handleDatagram decodes and applies one received datagram, per spec.md
// §4.1/§4.2. Decode failures and datagrams from unconfigured senders are
// dropped without side effects (spec.md §7); they are never fatal.
func (e *Engine) handleDatagram(dg socketbank.Datagram, now time.Time) {
	pkt, err := ripwire.Decode(dg.Data)
	if err != nil {
		metrics.PacketsDroppedTotal.WithLabelValues("decode").Inc()
		e.logger.Debug("dropping malformed datagram",
			zap.Int("local_port", dg.LocalPort), zap.Error(err))
		return
	}

	linkCost, ok := e.neighbours.LinkCost(pkt.SenderID)
	if !ok {
		metrics.PacketsDroppedTotal.WithLabelValues("unknown_sender").Inc()
		e.logger.Debug("dropping datagram from unconfigured sender",
			zap.Int("sender_id", pkt.SenderID), zap.Int("local_port", dg.LocalPort))
		return
	}

	metrics.PacketsReceivedTotal.Inc()
	if e.table.Apply(pkt.SenderID, linkCost, pkt.Entries, now) {
		e.triggeredPend = true
	}
}

// sweepTable ages the table and reports route-level events at info level
// (spec.md §7: "not errors; normal protocol behaviour").
func (e *Engine) sweepTable(now time.Time) bool {
	reachable := func() int {
		n := 0
		for _, r := range e.table.Snapshot() {
			if r.Cost < ripwire.Infinity {
				n++
			}
		}
		return n
	}

	before, reachableBefore := e.table.Len(), reachable()
	triggered := e.table.Sweep(now, e.timeout, e.garbage)
	after := e.table.Len()

	if timedOut := reachableBefore - reachable(); timedOut > 0 {
		metrics.RouteTimeoutsTotal.Add(float64(timedOut))
		e.logger.Info("routes aged past their timeout and are now unreachable", zap.Int("count", timedOut))
	}
	if removed := before - after; removed > 0 {
		metrics.RouteGCTotal.Add(float64(removed))
		e.logger.Info("garbage-collected expired routes", zap.Int("count", removed))
	}
	return triggered
}

// broadcast sends a periodic or triggered update to every configured
// neighbour, applying poisoned reverse per-peer (spec.md §4.1). A
// triggered broadcast that would carry zero entries for a given peer is
// skipped for that peer (spec.md §4.1: "callers may skip sending in that
// case"). Any send failure is fatal (spec.md §7).
func (e *Engine) broadcast(now time.Time, triggered bool) error {
	rows := e.sortedSnapshot()
	kind := "periodic"
	if triggered {
		kind = "triggered"
	}

	for _, n := range e.neighbours.All() {
		payload := ripwire.Encode(rows, e.table.SelfID(), n.PeerID, triggered)
		if triggered && len(payload) <= ripwire.HeaderSize {
			continue
		}
		if err := e.transport.SendTo(n.Port, payload); err != nil {
			return fmt.Errorf("engine: sending %s update to neighbour %d on port %d: %w", kind, n.PeerID, n.Port, err)
		}
		metrics.PacketsSentTotal.WithLabelValues(kind).Inc()
	}

	e.ready = true
	return nil
}

// sortedSnapshot returns the table's rows in destination order, so that
// outbound encodes are deterministic given the same table state (spec.md
// §8: "Encoding is deterministic given the same table order").
func (e *Engine) sortedSnapshot() []ripwire.Row {
	rows := e.table.Snapshot()
	sort.Slice(rows, func(i, j int) bool { return rows[i].Destination < rows[j].Destination })
	return rows
}

func (e *Engine) notifyObserver() {
	if e.observer != nil {
		e.observer.ObserveTable(e.table)
	}
}

func (e *Engine) jitteredPeriod() time.Duration {
	spread := time.Duration(float64(e.periodicUpdate) * periodicJitterFraction)
	if spread <= 0 {
		return e.periodicUpdate
	}
	jitter := time.Duration(rand.Int64N(int64(2*spread+1))) - spread
	return e.periodicUpdate + jitter
}

func randomDamp() time.Duration {
	span := int64(triggeredDampMax - triggeredDampMin)
	return triggeredDampMin + time.Duration(rand.Int64N(span+1))
}
