package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryKindOf(t *testing.T) {
	tests := []struct {
		sql  string
		want QueryKind
	}{
		{"SELECT * FROM t", KindSelect},
		{"  insert into t values (1)", KindInsert},
		{"REPLACE INTO t VALUES (1)", KindInsert},
		{"update t set a=1", KindUpdate},
		{"delete from t", KindDelete},
		{"SHOW TABLES", KindShow},
		{"DESCRIBE t", KindDescribe},
		{"EXPLAIN SELECT 1", KindDescribe},
		{"USE foo", KindUse},
		{"SET @x = 1", KindSet},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, QueryKindOf(tt.sql), tt.sql)
	}
}

func TestIsMetadata(t *testing.T) {
	require.True(t, IsMetadata(KindShow))
	require.True(t, IsMetadata(KindUse))
	require.False(t, IsMetadata(KindSelect))
}

func TestParseAndEmitRoundTrip(t *testing.T) {
	a, err := Parse("SELECT id, name FROM users WHERE id = 1")
	require.NoError(t, err)
	defer Repool(a)
	require.True(t, IsSelect(a))
	require.Equal(t, []string{"id", "name"}, SelectColumns(a))
	require.True(t, ColumnInWhere(a, "id"))
	require.False(t, ColumnInWhere(a, "name"))
}

func TestEmitStripsOuterParens(t *testing.T) {
	a, err := Parse("(SELECT 1)")
	require.NoError(t, err)
	defer Repool(a)
	require.NotContains(t, Emit(a), "(SELECT")
}

func TestJoins(t *testing.T) {
	a, err := Parse("SELECT * FROM a JOIN b ON a.id = b.a_id LEFT JOIN c ON b.id = c.b_id")
	require.NoError(t, err)
	defer Repool(a)
	require.Equal(t, []string{"INNER JOIN", "LEFT JOIN"}, Joins(a))
}

func TestUnions(t *testing.T) {
	a, err := Parse("SELECT a FROM t UNION SELECT b FROM u")
	require.NoError(t, err)
	defer Repool(a)
	require.Equal(t, 1, Unions(a))

	single, err := Parse("SELECT a FROM t")
	require.NoError(t, err)
	defer Repool(single)
	require.Equal(t, 0, Unions(single))
}

func TestSubqueryDepth(t *testing.T) {
	a, err := Parse("SELECT * FROM (SELECT * FROM (SELECT * FROM t) inner1) outer1")
	require.NoError(t, err)
	defer Repool(a)
	require.Equal(t, 2, SubqueryDepth(a))
}

func TestHasAggregate(t *testing.T) {
	withAgg, err := Parse("SELECT SUM(amount) FROM t")
	require.NoError(t, err)
	defer Repool(withAgg)
	require.True(t, HasAggregate(withAgg))

	without, err := Parse("SELECT amount FROM t")
	require.NoError(t, err)
	defer Repool(without)
	require.False(t, HasAggregate(without))
}

func TestAggregatedColumns(t *testing.T) {
	a, err := Parse("SELECT region, SUM(amount) FROM t GROUP BY region")
	require.NoError(t, err)
	defer Repool(a)
	cols := AggregatedColumns(a)
	require.True(t, cols["amount"])
	require.False(t, cols["region"])
}
