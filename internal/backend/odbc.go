package backend

import (
	"context"
	"fmt"

	"github.com/chronosproxy/proxy/internal/config"
)

// ODBCExecutor is the extension point for an ODBC-backed Executor. No ODBC
// driver is wired into this build (see DESIGN.md); constructing one always
// fails so the factory degrades to a clear startup error rather than a
// silent native fallback.
type ODBCExecutor struct{}

// NewODBCExecutor always returns an error: this build carries no ODBC driver.
func NewODBCExecutor(cfg config.ODBCConfig) (*ODBCExecutor, error) {
	return nil, fmt.Errorf("backend.connection_type=odbc is not available in this build; use native")
}

func (e *ODBCExecutor) Execute(ctx context.Context, sql string) *ExecutionResult {
	return &ExecutionResult{Err: fmt.Errorf("odbc executor not implemented")}
}

func (e *ODBCExecutor) Close() error { return nil }
