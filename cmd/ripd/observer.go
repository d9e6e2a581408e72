package main

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/routesim/ripd/internal/route"
)

// logObserver implements engine.TableObserver by logging a one-line
// summary of the table through zap. spec.md §1 places console
// pretty-printing of the table out of scope as an external collaborator;
// this is the minimal concrete implementation the daemon ships with, kept
// deliberately free of any terminal-repainting concern.
type logObserver struct {
	logger *zap.Logger
}

func newLogObserver(logger *zap.Logger) *logObserver {
	return &logObserver{logger: logger}
}

// ObserveTable logs the destination, next hop, and cost of every row,
// in destination order, at debug level.
func (o *logObserver) ObserveTable(t *route.Table) {
	if !o.logger.Core().Enabled(zap.DebugLevel) {
		return
	}

	rows := t.Snapshot()
	sort.Slice(rows, func(i, j int) bool { return rows[i].Destination < rows[j].Destination })

	fields := make([]zap.Field, 0, len(rows))
	for _, r := range rows {
		fields = append(fields, zap.String(
			fmt.Sprintf("dest_%d", r.Destination),
			fmt.Sprintf("next_hop=%d cost=%d", r.NextHop, r.Cost),
		))
	}
	o.logger.Debug("forwarding table", fields...)
}
