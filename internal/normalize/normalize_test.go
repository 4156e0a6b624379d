package normalize

import (
	"testing"
	"time"

	"github.com/dolthub/vitess/go/sqltypes"
	"github.com/stretchr/testify/require"
)

func TestValueDecimalBytesToFloat(t *testing.T) {
	got := Value([]byte("123.45"), "DECIMAL")
	require.InDelta(t, 123.45, got, 0.0001)
}

func TestValueNonDecimalBytesToString(t *testing.T) {
	got := Value([]byte("hello"), "VARCHAR")
	require.Equal(t, "hello", got)
}

func TestValueInvalidUTF8Replaced(t *testing.T) {
	got := Value([]byte{0xff, 0xfe}, "VARCHAR")
	s, ok := got.(string)
	require.True(t, ok)
	require.Contains(t, s, "�")
}

func TestValueNil(t *testing.T) {
	require.Nil(t, Value(nil, "INT"))
}

func TestValueFloat32Widened(t *testing.T) {
	got := Value(float32(1.5), "FLOAT")
	_, ok := got.(float64)
	require.True(t, ok)
}

func TestFormatTimeDateOnly(t *testing.T) {
	got := formatTime(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	require.Equal(t, "2026-07-31", got)
}

func TestFormatTimeDateAndTime(t *testing.T) {
	got := formatTime(time.Date(2026, 7, 31, 13, 30, 0, 0, time.UTC))
	require.Equal(t, "2026-07-31 13:30:00", got)
}

func TestRow(t *testing.T) {
	row := []any{[]byte("99.99"), "already a string"}
	Row(row, []string{"DECIMAL", "VARCHAR"})
	require.InDelta(t, 99.99, row[0], 0.0001)
	require.Equal(t, "already a string", row[1])
}

func TestWireType(t *testing.T) {
	require.Equal(t, sqltypes.Int32, WireType("INT"))
	require.Equal(t, sqltypes.Decimal, WireType("decimal"))
	require.Equal(t, sqltypes.VarChar, WireType("SOMETHING_UNKNOWN"))
	require.Equal(t, sqltypes.Datetime, WireType("DATETIME"))
}
