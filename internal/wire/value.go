package wire

import (
	"fmt"

	"github.com/dolthub/vitess/go/sqltypes"

	"github.com/chronosproxy/proxy/internal/normalize"
)

func wireTypeOf(typeName string) sqltypes.Type {
	return normalize.WireType(typeName)
}

// toSQLValue renders a normalized Go value as a vitess wire value. Every
// value reaching here has already passed through normalize.Value, so the
// only representations left are nil, string, the numeric kinds, and bool.
func toSQLValue(v any, typ sqltypes.Type) sqltypes.Value {
	if v == nil {
		return sqltypes.NULL
	}
	switch val := v.(type) {
	case string:
		return sqltypes.MakeTrusted(typ, []byte(val))
	case []byte:
		return sqltypes.MakeTrusted(typ, val)
	case bool:
		if val {
			return sqltypes.MakeTrusted(typ, []byte("1"))
		}
		return sqltypes.MakeTrusted(typ, []byte("0"))
	default:
		return sqltypes.MakeTrusted(typ, []byte(fmt.Sprintf("%v", val)))
	}
}
