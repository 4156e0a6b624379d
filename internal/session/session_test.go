package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/logging"
	"github.com/chronosproxy/proxy/internal/metrics"
)

type fakeExecutor struct {
	lastSQL string
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) *backend.ExecutionResult {
	f.lastSQL = sql
	return &backend.ExecutionResult{
		Columns: []backend.Column{{Name: "n", TypeName: "INT"}},
		Rows:    [][]any{{int64(1)}},
	}
}

func (f *fakeExecutor) Close() error { return nil }

func newTestSession(cfg *config.Config) (*Session, *fakeExecutor) {
	exec := &fakeExecutor{}
	s := New(cfg, exec, logging.Noop(), metrics.New(), "conn-test", "127.0.0.1")
	return s, exec
}

func TestUseSchemaAllowed(t *testing.T) {
	cfg := config.Default()
	s, _ := newTestSession(&cfg)
	res := s.Query(context.Background(), "USE accounting")
	require.Nil(t, res.Err)
	require.Equal(t, "accounting", s.CurrentSchema())
}

func TestUseSchemaBlocked(t *testing.T) {
	cfg := config.Default()
	s, _ := newTestSession(&cfg)
	res := s.Query(context.Background(), "USE mysql")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.SchemaBlocked, res.Err.Kind)
	require.Empty(t, s.CurrentSchema())
}

func TestUseSchemaRespectsAllowList(t *testing.T) {
	cfg := config.Default()
	cfg.BusinessRules.AllowedSchemas = []string{"accounting"}
	s, _ := newTestSession(&cfg)

	res := s.Query(context.Background(), "USE reporting")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.SchemaBlocked, res.Err.Kind)

	res = s.Query(context.Background(), "USE accounting")
	require.Nil(t, res.Err)
}

func TestSetVarIsInterceptedLocally(t *testing.T) {
	cfg := config.Default()
	s, exec := newTestSession(&cfg)
	res := s.Query(context.Background(), "SET @myvar = 'hello'")
	require.Nil(t, res.Err)
	require.Empty(t, exec.lastSQL)
	require.Equal(t, "hello", s.vars["myvar"])
}

func TestSetNamesHandledLocally(t *testing.T) {
	cfg := config.Default()
	s, exec := newTestSession(&cfg)
	res := s.Query(context.Background(), "SET NAMES utf8mb4")
	require.Nil(t, res.Err)
	require.Empty(t, exec.lastSQL)
}

func TestStaticIntrospectionConnectionID(t *testing.T) {
	cfg := config.Default()
	s, exec := newTestSession(&cfg)
	res := s.Query(context.Background(), "SELECT CONNECTION_ID()")
	require.Nil(t, res.Err)
	require.Empty(t, exec.lastSQL)
	require.Equal(t, [][]any{{"conn-test"}}, res.Rows)
}

func TestStaticIntrospectionSelectLiteral(t *testing.T) {
	cfg := config.Default()
	s, exec := newTestSession(&cfg)
	res := s.Query(context.Background(), "SELECT 1")
	require.Nil(t, res.Err)
	require.Empty(t, exec.lastSQL)
}

func TestQueryFallsThroughToPipeline(t *testing.T) {
	cfg := config.Default()
	s, exec := newTestSession(&cfg)
	res := s.Query(context.Background(), "SELECT * FROM ledger WHERE cob_date = '2026-07-31'")
	require.Nil(t, res.Err)
	require.NotEmpty(t, exec.lastSQL)
}

func TestQueryRejectedAfterClose(t *testing.T) {
	cfg := config.Default()
	s, _ := newTestSession(&cfg)
	s.Close()
	res := s.Query(context.Background(), "SELECT 1")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.InternalError, res.Err.Kind)
}

func TestStateTransitionsBackToReady(t *testing.T) {
	cfg := config.Default()
	s, _ := newTestSession(&cfg)
	s.Query(context.Background(), "SELECT 1")
	require.Equal(t, StateReady, s.State())
}
