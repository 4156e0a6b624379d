// Package wire binds the session state machine to the MySQL wire protocol
// via dolthub/vitess's mysql.Listener/mysql.Handler, so the rest of the
// proxy never has to know a wire protocol exists.
package wire

import (
	"context"
	"fmt"
	"sync"

	"github.com/dolthub/vitess/go/mysql"
	"github.com/dolthub/vitess/go/sqltypes"
	querypb "github.com/dolthub/vitess/go/vt/proto/query"

	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/logging"
	"github.com/chronosproxy/proxy/internal/metrics"
	"github.com/chronosproxy/proxy/internal/session"
)

// Handler implements mysql.Handler, translating wire-level connection and
// query events into Session calls. One Handler is shared by every
// connection the listener accepts; the backend executor (and its
// connection pool) is the only state the sessions it creates share.
type Handler struct {
	cfg     *config.Config
	exec    backend.Executor
	log     logging.Logger
	metrics *metrics.Counters

	mu    sync.Mutex
	conns map[uint32]*connEntry
}

type connEntry struct {
	sess   *session.Session
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Handler bound to a single shared backend executor.
func New(cfg *config.Config, exec backend.Executor, log logging.Logger, m *metrics.Counters) *Handler {
	return &Handler{cfg: cfg, exec: exec, log: log, metrics: m, conns: make(map[uint32]*connEntry)}
}

var _ mysql.Handler = (*Handler)(nil)

// NewConnection creates the Session backing a newly accepted connection.
func (h *Handler) NewConnection(c *mysql.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	connectionID := fmt.Sprintf("conn-%08x", c.ConnectionID)
	sourceIP := "unknown"
	if addr := c.RemoteAddr(); addr != nil {
		sourceIP = addr.String()
	}

	sess := session.New(h.cfg, h.exec, h.log, h.metrics, connectionID, sourceIP)
	h.mu.Lock()
	h.conns[c.ConnectionID] = &connEntry{sess: sess, ctx: ctx, cancel: cancel}
	h.mu.Unlock()
	h.log.InfoContext(ctx, "connection opened", "connection_id", connectionID, "source_ip", sourceIP)
}

// ConnectionClosed tears down the Session, cancelling any in-flight query.
func (h *Handler) ConnectionClosed(c *mysql.Conn) {
	h.mu.Lock()
	entry, ok := h.conns[c.ConnectionID]
	delete(h.conns, c.ConnectionID)
	h.mu.Unlock()
	if !ok {
		return
	}
	entry.cancel()
	entry.sess.Close()
}

// ComInitDB maps a USE command onto the session's USE path.
func (h *Handler) ComInitDB(c *mysql.Conn, schemaName string) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}
	res := entry.sess.Query(entry.ctx, "USE "+schemaName)
	if res.Err != nil {
		return protocolError(res.Err)
	}
	return nil
}

// ComQuery dispatches to the session and spools the result back through
// callback in a single batch.
func (h *Handler) ComQuery(c *mysql.Conn, query string, callback mysql.ResultSpoolFn) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}
	res := entry.sess.Query(entry.ctx, query)
	if res.Err != nil {
		return protocolError(res.Err)
	}
	return callback(toSQLResult(res), false)
}

// ComPrepare is not supported: the proxy has no prepared-statement cache.
func (h *Handler) ComPrepare(c *mysql.Conn, query string, prepare *mysql.PrepareData) ([]*querypb.Field, error) {
	return nil, protocolError(cperrors.New(cperrors.ParseError, cperrors.Context{ParseDetail: "prepared statements are not supported"}))
}

// ComStmtExecute is not supported, for the same reason as ComPrepare.
func (h *Handler) ComStmtExecute(c *mysql.Conn, prepare *mysql.PrepareData, callback func(*sqltypes.Result) error) error {
	return protocolError(cperrors.New(cperrors.ParseError, cperrors.Context{ParseDetail: "prepared statements are not supported"}))
}

// WarningCount always reports zero: the proxy never accumulates MySQL
// warnings of its own.
func (h *Handler) WarningCount(c *mysql.Conn) uint16 { return 0 }

// ComResetConnection replaces the session's state but preserves its
// connection id, matching COM_RESET_CONNECTION semantics.
func (h *Handler) ComResetConnection(c *mysql.Conn) error {
	h.mu.Lock()
	entry, ok := h.conns[c.ConnectionID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("connection not found: %d", c.ConnectionID)
	}
	schema := entry.sess.CurrentSchema()
	h.NewConnection(c)
	if schema != "" {
		return h.ComInitDB(c, schema)
	}
	return nil
}

func (h *Handler) entry(c *mysql.Conn) (*connEntry, error) {
	h.mu.Lock()
	entry, ok := h.conns[c.ConnectionID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("connection not found: %d", c.ConnectionID)
	}
	return entry, nil
}

func protocolError(perr *cperrors.PipelineError) error {
	return fmt.Errorf("%s", perr.Message)
}

func toSQLResult(res *session.Result) *sqltypes.Result {
	fields := make([]*querypb.Field, len(res.Columns))
	for i, col := range res.Columns {
		fields[i] = &querypb.Field{Name: col.Name, Type: wireTypeOf(col.TypeName)}
	}
	rows := make([][]sqltypes.Value, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = make([]sqltypes.Value, len(row))
		for j, v := range row {
			typeName := ""
			if j < len(res.Columns) {
				typeName = res.Columns[j].TypeName
			}
			rows[i][j] = toSQLValue(v, wireTypeOf(typeName))
		}
	}
	return &sqltypes.Result{Fields: fields, Rows: rows, RowsAffected: uint64(len(rows))}
}
