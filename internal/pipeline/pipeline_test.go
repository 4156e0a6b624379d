package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosproxy/proxy/internal/backend"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
	"github.com/chronosproxy/proxy/internal/logging"
)

type fakeExecutor struct {
	lastSQL string
	result  *backend.ExecutionResult
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) *backend.ExecutionResult {
	f.lastSQL = sql
	if f.result != nil {
		return f.result
	}
	return &backend.ExecutionResult{
		Columns: []backend.Column{{Name: "n", TypeName: "INT"}},
		Rows:    [][]any{{int64(1)}},
	}
}

func (f *fakeExecutor) Close() error { return nil }

func newTestPipeline(exec backend.Executor) (*Pipeline, *config.Config) {
	cfg := config.Default()
	p := New(&cfg, exec, logging.Noop(), "conn-test", "127.0.0.1")
	return p, &cfg
}

func TestProcessBlocksWrites(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "DELETE FROM ledger")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.WriteBlocked, res.Err.Kind)
	require.Empty(t, exec.lastSQL)
}

func TestProcessRejectsMissingDateFilter(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT * FROM ledger")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.MissingDateFilter, res.Err.Kind)
}

func TestProcessSucceedsWithDateFilter(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT * FROM ledger WHERE cob_date = '2026-07-31'")
	require.Nil(t, res.Err)
	require.Equal(t, [][]any{{int64(1)}}, res.Rows)
}

func TestProcessAppliesGroupByCompletion(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT region, SUM(amount) FROM ledger WHERE cob_date = '2026-07-31'")
	require.Nil(t, res.Err)
	require.True(t, res.WasTransformed)
	require.Contains(t, exec.lastSQL, "GROUP BY")
}

func TestProcessUnwrapsParensAndMarksTransformed(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "(SELECT c1, c2 FROM ledger WHERE cob_date='2026-07-31') LIMIT 0")
	require.Nil(t, res.Err)
	require.True(t, res.WasTransformed)
	require.NotContains(t, exec.lastSQL, "(SELECT")
}

func TestProcessRecordsTransformationsAttemptedBeforeRejection(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "(SELECT region, SUM(amount) FROM ledger)")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.MissingDateFilter, res.Err.Kind)
	require.Contains(t, res.Err.TransformationsAttempted, "PAREN_UNWRAP")
	require.Contains(t, res.Err.TransformationsAttempted, "GROUP_BY_FIX")
}

func TestProcessBackendError(t *testing.T) {
	exec := &fakeExecutor{result: &backend.ExecutionResult{Err: context.DeadlineExceeded}}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT * FROM ledger WHERE cob_date = '2026-07-31'")
	require.NotNil(t, res.Err)
	require.Equal(t, cperrors.BackendError, res.Err.Kind)
}

func TestProcessMetadataPassesThroughShow(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SHOW TABLES")
	require.Nil(t, res.Err)
	require.Equal(t, "SHOW TABLES", exec.lastSQL)
}

func TestProcessMetadataConvertsInformationSchema(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT * FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = 'accounting'")
	require.Nil(t, res.Err)
	require.Equal(t, "SHOW TABLES FROM accounting", exec.lastSQL)
	require.True(t, res.WasTransformed)
}

func TestProcessMetadataTooComplexReturnsEmpty(t *testing.T) {
	exec := &fakeExecutor{}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT * FROM INFORMATION_SCHEMA.TABLES WHERE ENGINE = 'InnoDB'")
	require.Nil(t, res.Err)
	require.Nil(t, res.Rows)
	require.Empty(t, exec.lastSQL)
}

func TestProcessNormalizesDecimalColumns(t *testing.T) {
	exec := &fakeExecutor{result: &backend.ExecutionResult{
		Columns: []backend.Column{{Name: "amount", TypeName: "DECIMAL"}},
		Rows:    [][]any{{[]byte("42.50")}},
	}}
	p, _ := newTestPipeline(exec)
	res := p.Process(context.Background(), "SELECT amount FROM ledger WHERE cob_date = '2026-07-31'")
	require.Nil(t, res.Err)
	require.InDelta(t, 42.50, res.Rows[0][0], 0.0001)
}
