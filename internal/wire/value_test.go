package wire

import (
	"testing"

	"github.com/dolthub/vitess/go/sqltypes"
	"github.com/stretchr/testify/require"
)

func TestToSQLValueNil(t *testing.T) {
	got := toSQLValue(nil, sqltypes.VarChar)
	require.Equal(t, sqltypes.NULL, got)
}

func TestToSQLValueString(t *testing.T) {
	got := toSQLValue("hello", sqltypes.VarChar)
	require.Equal(t, "hello", got.ToString())
}

func TestToSQLValueBool(t *testing.T) {
	got := toSQLValue(true, sqltypes.Int8)
	require.Equal(t, "1", got.ToString())
	got = toSQLValue(false, sqltypes.Int8)
	require.Equal(t, "0", got.ToString())
}

func TestToSQLValueNumeric(t *testing.T) {
	got := toSQLValue(int64(42), sqltypes.Int64)
	require.Equal(t, "42", got.ToString())
}

func TestWireTypeOfDelegatesToNormalize(t *testing.T) {
	require.Equal(t, sqltypes.Decimal, wireTypeOf("DECIMAL"))
}
