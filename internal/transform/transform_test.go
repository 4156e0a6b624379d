package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	"github.com/chronosproxy/proxy/internal/sqlast/ast"
)

func parse(t *testing.T, sql string) *analysis.AST {
	t.Helper()
	a, err := analysis.Parse(sql)
	require.NoError(t, err)
	t.Cleanup(func() { analysis.Repool(a) })
	return a
}

func TestUnwrapParensLimit(t *testing.T) {
	out, changed := unwrapParens("(SELECT * FROM t) LIMIT 10")
	require.True(t, changed)
	require.Equal(t, "SELECT * FROM t LIMIT 10", out)
}

func TestUnwrapParensBare(t *testing.T) {
	out, changed := unwrapParens("(SELECT * FROM t)")
	require.True(t, changed)
	require.Equal(t, "SELECT * FROM t", out)
}

func TestUnwrapParensNoMatch(t *testing.T) {
	out, changed := unwrapParens("SELECT * FROM t")
	require.False(t, changed)
	require.Equal(t, "SELECT * FROM t", out)
}

func TestConvertInformationSchemaTables(t *testing.T) {
	a := parse(t, "SELECT * FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = 'accounting'")
	res := ConvertInformationSchema(a)
	require.True(t, res.Matched)
	require.False(t, res.TooComplex)
	require.Equal(t, "SHOW TABLES FROM accounting", res.SQL)
}

func TestConvertInformationSchemaTablesNoFilter(t *testing.T) {
	a := parse(t, "SELECT * FROM INFORMATION_SCHEMA.TABLES")
	res := ConvertInformationSchema(a)
	require.True(t, res.Matched)
	require.Equal(t, "SHOW TABLES", res.SQL)
}

func TestConvertInformationSchemaTooComplex(t *testing.T) {
	a := parse(t, "SELECT * FROM INFORMATION_SCHEMA.TABLES WHERE ENGINE = 'InnoDB'")
	res := ConvertInformationSchema(a)
	require.True(t, res.Matched)
	require.True(t, res.TooComplex)
}

func TestConvertInformationSchemaColumns(t *testing.T) {
	a := parse(t, "SELECT * FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = 'accounting' AND TABLE_NAME = 'ledger'")
	res := ConvertInformationSchema(a)
	require.True(t, res.Matched)
	require.Equal(t, "SHOW COLUMNS FROM accounting.ledger", res.SQL)
}

func TestConvertInformationSchemaSchemataPassthrough(t *testing.T) {
	a := parse(t, "SELECT * FROM INFORMATION_SCHEMA.SCHEMATA")
	res := ConvertInformationSchema(a)
	require.True(t, res.Matched)
	require.True(t, res.Passthrough)
	require.Empty(t, res.SQL)
}

func TestConvertInformationSchemaUnrelatedTable(t *testing.T) {
	a := parse(t, "SELECT * FROM ledger")
	res := ConvertInformationSchema(a)
	require.False(t, res.Matched)
}

func TestUnwrapSubqueryStar(t *testing.T) {
	a := parse(t, "SELECT * FROM (SELECT id, cob_date FROM ledger) t WHERE t.cob_date = '2026-07-31'")
	sel := a.Stmt.(*ast.SelectStmt)
	merged, perr, matched := unwrapSubquery(sel, 2)
	require.Nil(t, perr)
	require.True(t, matched)
	require.NotNil(t, merged.Where)
}

func TestCompleteGroupByLeavesCompleteClause(t *testing.T) {
	a := parse(t, "SELECT region, SUM(amount) FROM ledger GROUP BY region")
	sel := a.Stmt.(*ast.SelectStmt)
	added := completeGroupBy(sel)
	require.Empty(t, added)
}

func TestCompleteGroupByCreatesClause(t *testing.T) {
	a := parse(t, "SELECT region, SUM(amount) FROM ledger")
	sel := a.Stmt.(*ast.SelectStmt)
	added := completeGroupBy(sel)
	require.Equal(t, []string{"region"}, added)
	require.Len(t, sel.GroupBy, 1)
}

func TestApplyRecordsSubqueryAndGroupBy(t *testing.T) {
	cfg := config.Default()
	a := parse(t, "SELECT * FROM (SELECT region, SUM(amount) FROM ledger) t")
	res, perr := Apply(&cfg, a)
	require.Nil(t, perr)
	require.True(t, res.Changed)
	require.Len(t, res.Records, 2)
	require.Equal(t, "SUBQUERY_UNWRAP", res.Records[0].Type)
	require.Equal(t, "GROUP_BY_FIX", res.Records[1].Type)
}

func TestApplySubqueryTooComplex(t *testing.T) {
	cfg := config.Default()
	cfg.Transformations.MaxSubqueryDepth = 0
	a := parse(t, "SELECT * FROM (SELECT * FROM (SELECT * FROM t) inner1) outer1")
	_, perr := Apply(&cfg, a)
	require.NotNil(t, perr)
}
