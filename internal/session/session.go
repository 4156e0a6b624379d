// Package session implements the per-connection state machine: USE/SET
// interception, static introspection, and dispatch of everything else to
// the query pipeline.
package session

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/logging"
	"github.com/chronosproxy/proxy/internal/metrics"
	"github.com/chronosproxy/proxy/internal/pipeline"
)

// State is the session's position in its connection lifecycle.
type State string

const (
	StateConnected State = "CONNECTED"
	StateReady     State = "READY"
	StateInQuery   State = "IN_QUERY"
	StateClosed    State = "CLOSED"
)

var (
	useStmt      = regexp.MustCompile(`(?is)^\s*USE\s+` + "`" + `?([a-zA-Z0-9_$]+)` + "`" + `?\s*;?\s*$`)
	setVarStmt   = regexp.MustCompile(`(?is)^\s*SET\s+@([a-zA-Z0-9_.$]+)\s*(:?=)\s*(.*?)\s*;?\s*$`)
	setNamesStmt = regexp.MustCompile(`(?is)^\s*SET\s+(NAMES|CHARACTER\s+SET|character_set_\w+|collation_\w+)\b`)
	connIDStmt   = regexp.MustCompile(`(?is)^\s*SELECT\s+CONNECTION_ID\(\s*\)\s*;?\s*$`)
	selectOneLit = regexp.MustCompile(`(?is)^\s*SELECT\s+(\d+)\s*;?\s*$`)
)

// Result is what a Session hands back to the wire layer: either a result
// set or a protocol-level error, never both.
type Result struct {
	Columns []backend.Column
	Rows    [][]any
	Err     *cperrors.PipelineError
}

// Session holds one client connection's state: current schema, session
// variables, and the pipeline bound to its backend executor. One Session
// is created per accepted connection and destroyed on disconnect.
type Session struct {
	cfg          *config.Config
	pipe         *pipeline.Pipeline
	log          logging.Logger
	metrics      *metrics.Counters
	connectionID string

	mu            sync.Mutex
	state         State
	currentSchema string
	vars          map[string]string
	allowed       []string
	blocked       []string
}

// New creates a Session bound to connectionID's backend executor, snapshotting
// the schema allow/deny lists from cfg so USE decisions never touch the
// shared config object under concurrent access from other sessions.
func New(cfg *config.Config, exec backend.Executor, log logging.Logger, m *metrics.Counters, connectionID, sourceIP string) *Session {
	return &Session{
		cfg:          cfg,
		pipe:         pipeline.New(cfg, exec, log, connectionID, sourceIP),
		log:          log.With("connection_id", connectionID),
		metrics:      m,
		connectionID: connectionID,
		state:        StateConnected,
		vars:         make(map[string]string),
		allowed:      append([]string(nil), cfg.BusinessRules.AllowedSchemas...),
		blocked:      append([]string(nil), cfg.BusinessRules.BlockedSchemas...),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSchema reports the schema most recently set by USE, or "".
func (s *Session) CurrentSchema() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSchema
}

// Close transitions the session to CLOSED; further Query calls are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// Query runs sql through the session's middleware first (USE, SET, static
// introspection), falling through to the pipeline for everything else.
// Queries within one session are strictly serialized by the caller: the
// wire handler must not call Query again before the previous Result is
// flushed.
func (s *Session) Query(ctx context.Context, sql string) *Result {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return &Result{Err: cperrors.New(cperrors.InternalError, cperrors.Context{})}
	}
	s.state = StateInQuery
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.state != StateClosed {
			s.state = StateReady
		}
		s.mu.Unlock()
	}()

	if res, ok := s.useSchema(sql); ok {
		s.record(res)
		return res
	}
	if res, ok := s.setVar(sql); ok {
		s.record(res)
		return res
	}
	if res, ok := s.setNames(sql); ok {
		s.record(res)
		return res
	}
	if res, ok := s.staticIntrospection(sql); ok {
		s.record(res)
		return res
	}

	if secs := s.cfg.Backend.QueryTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}
	result := s.pipe.Process(ctx, sql)
	if result.Err != nil {
		res := &Result{Err: result.Err}
		s.record(res)
		return res
	}
	res := &Result{Columns: result.Columns, Rows: result.Rows}
	if s.metrics != nil {
		s.metrics.RecordSuccess(result.WasTransformed)
	}
	return res
}

func (s *Session) record(res *Result) {
	if s.metrics == nil {
		return
	}
	if res.Err != nil {
		s.metrics.RecordFailure(res.Err.Kind)
		return
	}
	s.metrics.RecordSuccess(false)
}

func (s *Session) useSchema(sql string) (*Result, bool) {
	m := useStmt.FindStringSubmatch(sql)
	if m == nil {
		return nil, false
	}
	schema := m[1]
	if !s.schemaAllowed(schema) {
		return &Result{Err: cperrors.New(cperrors.SchemaBlocked, cperrors.Context{Schema: schema})}, true
	}
	s.mu.Lock()
	s.currentSchema = schema
	s.mu.Unlock()
	return &Result{Columns: []backend.Column{}, Rows: [][]any{}}, true
}

func (s *Session) schemaAllowed(schema string) bool {
	for _, b := range s.blocked {
		if strings.EqualFold(b, schema) {
			return false
		}
	}
	if len(s.allowed) == 0 {
		return true
	}
	for _, a := range s.allowed {
		if strings.EqualFold(a, schema) {
			return true
		}
	}
	return false
}

func (s *Session) setVar(sql string) (*Result, bool) {
	m := setVarStmt.FindStringSubmatch(sql)
	if m == nil {
		return nil, false
	}
	s.mu.Lock()
	s.vars[strings.ToLower(m[1])] = strings.Trim(m[3], "'\"")
	s.mu.Unlock()
	return &Result{Columns: []backend.Column{}, Rows: [][]any{}}, true
}

func (s *Session) setNames(sql string) (*Result, bool) {
	if !setNamesStmt.MatchString(sql) {
		return nil, false
	}
	return &Result{Columns: []backend.Column{}, Rows: [][]any{}}, true
}

// staticIntrospection answers a handful of client-probe queries locally,
// without touching the backend: CONNECTION_ID() and bare SELECT <int>,
// both issued by drivers (and Tableau itself) as liveness checks.
func (s *Session) staticIntrospection(sql string) (*Result, bool) {
	if connIDStmt.MatchString(sql) {
		return &Result{
			Columns: []backend.Column{{Name: "CONNECTION_ID()", TypeName: "BIGINT"}},
			Rows:    [][]any{{s.connectionID}},
		}, true
	}
	if m := selectOneLit.FindStringSubmatch(sql); m != nil {
		return &Result{
			Columns: []backend.Column{{Name: m[1], TypeName: "BIGINT"}},
			Rows:    [][]any{{m[1]}},
		}, true
	}
	return nil, false
}
