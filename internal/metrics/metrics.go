// Package metrics aggregates cross-session query counters. It is the one
// piece of mutable state shared by every session; all access is atomic and
// none of it gates query processing.
package metrics

import (
	"sync"
	"sync/atomic"

	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

// Counters is a process-wide set of atomic query counters.
type Counters struct {
	QueriesTotal       atomic.Int64
	QueriesTransformed atomic.Int64
	QueriesFailed      atomic.Int64

	mu       sync.Mutex
	failedBy map[cperrors.Kind]int64
}

// New returns a zeroed Counters, ready to be shared across sessions.
func New() *Counters {
	return &Counters{failedBy: make(map[cperrors.Kind]int64)}
}

// RecordSuccess increments the total and, if the query was rewritten,
// the transformed counter.
func (c *Counters) RecordSuccess(transformed bool) {
	c.QueriesTotal.Add(1)
	if transformed {
		c.QueriesTransformed.Add(1)
	}
}

// RecordFailure increments the total, the failed counter, and the
// per-kind failure breakdown.
func (c *Counters) RecordFailure(kind cperrors.Kind) {
	c.QueriesTotal.Add(1)
	c.QueriesFailed.Add(1)
	c.mu.Lock()
	c.failedBy[kind]++
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters, safe to log or export.
type Snapshot struct {
	QueriesTotal       int64
	QueriesTransformed int64
	QueriesFailed      int64
	FailedByKind       map[cperrors.Kind]int64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	byKind := make(map[cperrors.Kind]int64, len(c.failedBy))
	for k, v := range c.failedBy {
		byKind[k] = v
	}
	return Snapshot{
		QueriesTotal:       c.QueriesTotal.Load(),
		QueriesTransformed: c.QueriesTransformed.Load(),
		QueriesFailed:      c.QueriesFailed.Load(),
		FailedByKind:       byKind,
	}
}
