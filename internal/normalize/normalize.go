// Package normalize coerces backend query results into MySQL
// wire-protocol-compatible values and column type tags.
package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dolthub/vitess/go/sqltypes"
)

// Value converts a single value scanned out of database/sql into the shape
// the wire layer expects: temporal values as MySQL-formatted strings, and
// bytes as UTF-8 (replacing invalid sequences) rather than raw binary.
// typeName is the column's DatabaseTypeName(), used to recognize a DECIMAL
// column coming back as driver bytes so it can be coerced to float64.
func Value(v any, typeName string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if isDecimal(typeName) {
			if f, err := strconv.ParseFloat(string(val), 64); err == nil {
				return f
			}
		}
		return toUTF8(val)
	case time.Time:
		return formatTime(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

func isDecimal(typeName string) bool {
	up := strings.ToUpper(typeName)
	return up == "DECIMAL" || up == "NUMERIC"
}

// Row converts every value in row in place, given the parallel column type
// names, and returns it for convenience in a range loop over a result set.
func Row(row []any, columns []string) []any {
	for i, v := range row {
		typeName := ""
		if i < len(columns) {
			typeName = columns[i]
		}
		row[i] = Value(v, typeName)
	}
	return row
}

func toUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// formatTime renders a time.Time the way the MySQL wire protocol expects,
// choosing DATE/TIME/DATETIME formatting by which fields are non-zero.
func formatTime(t time.Time) string {
	hasDate := t.Year() != 0 || t.Month() != 1 || t.Day() != 1
	hasTime := t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
	switch {
	case hasDate && hasTime:
		return t.Format("2006-01-02 15:04:05")
	case hasDate:
		return t.Format("2006-01-02")
	default:
		return t.Format("15:04:05")
	}
}

// WireType maps a backend column type name (as reported by
// sql.ColumnType.DatabaseTypeName()) to the vitess wire-protocol type tag,
// per the proxy's fixed conversion table. Unrecognized names fall back to
// VarChar, matching the backend's own "anything else is a string" behavior.
func WireType(dbTypeName string) sqltypes.Type {
	switch strings.ToUpper(dbTypeName) {
	case "CHAR", "VARCHAR":
		return sqltypes.VarChar
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT":
		return sqltypes.Text
	case "TINYINT":
		return sqltypes.Int8
	case "SMALLINT":
		return sqltypes.Int16
	case "MEDIUMINT":
		return sqltypes.Int24
	case "INT", "INTEGER":
		return sqltypes.Int32
	case "BIGINT":
		return sqltypes.Int64
	case "FLOAT":
		return sqltypes.Float32
	case "DOUBLE", "REAL":
		return sqltypes.Float64
	case "DECIMAL", "NUMERIC":
		return sqltypes.Decimal
	case "DATE":
		return sqltypes.Date
	case "TIME":
		return sqltypes.Time
	case "DATETIME":
		return sqltypes.Datetime
	case "TIMESTAMP":
		return sqltypes.Timestamp
	case "YEAR":
		return sqltypes.Year
	case "BIT":
		return sqltypes.Bit
	case "ENUM":
		return sqltypes.Enum
	case "SET":
		return sqltypes.Set
	case "JSON":
		return sqltypes.TypeJSON
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return sqltypes.Blob
	case "NULL":
		return sqltypes.Null
	default:
		return sqltypes.VarChar
	}
}
