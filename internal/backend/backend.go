// Package backend dispatches queries to the constrained backend server and
// reports columns, rows, and timing, independent of which driver moved them.
package backend

import (
	"context"
	"time"
)

// Column describes one result column: its name and the backend type name
// reported for it (e.g. "VARCHAR", "BIGINT", "DATETIME").
type Column struct {
	Name     string
	TypeName string
}

// ExecutionResult is what an Executor returns for a single query, success
// or failure; exactly one of (Columns/Rows) or Err is meaningful.
type ExecutionResult struct {
	Columns       []Column
	Rows          [][]any
	ElapsedMS     float64
	Err           error
	BackendCode   int
	BackendDetail string
}

// RowCount reports how many rows were returned.
func (r *ExecutionResult) RowCount() int { return len(r.Rows) }

// Executor runs SQL against the backend and returns its result. Execute
// must never panic on a backend error; it reports it in ExecutionResult.Err.
type Executor interface {
	Execute(ctx context.Context, sql string) *ExecutionResult
	Close() error
}

// timeIt runs fn and returns its result together with elapsed milliseconds.
func timeIt(fn func() *ExecutionResult) *ExecutionResult {
	start := time.Now()
	res := fn()
	res.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)
	return res
}
