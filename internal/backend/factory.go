package backend

import (
	"context"
	"fmt"

	"github.com/chronosproxy/proxy/internal/config"
)

// New builds the Executor named by cfg.Backend.ConnectionType.
func New(ctx context.Context, cfg *config.Config) (Executor, error) {
	switch cfg.Backend.ConnectionType {
	case "native":
		return NewNativeExecutor(ctx, cfg.Backend.Native, cfg.Backend)
	case "odbc":
		return NewODBCExecutor(cfg.Backend.ODBC)
	default:
		return nil, fmt.Errorf("invalid connection_type: %s (must be odbc or native)", cfg.Backend.ConnectionType)
	}
}
