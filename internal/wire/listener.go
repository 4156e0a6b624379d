package wire

import (
	"context"
	"fmt"

	"github.com/dolthub/vitess/go/mysql"

	"github.com/chronosproxy/proxy/internal/config"
)

// Serve starts the MySQL wire-protocol listener on cfg.Proxy.Host:Port and
// blocks until ctx is cancelled or the listener fails. Authentication is
// not part of this proxy's scope (see SPEC_FULL.md): every client is
// accepted without a password, same as the original's trust-the-network
// deployment model.
func Serve(ctx context.Context, cfg *config.Config, handler *Handler) error {
	addr := fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port)
	l, err := mysql.NewListener("tcp", addr, mysql.NewAuthServerNone(), handler, 0, 0, false, false)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	l.Accept()
	return nil
}
