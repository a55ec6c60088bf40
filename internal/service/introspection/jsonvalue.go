package introspection

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// JSONValue turns a scanned value into something encoding/json renders the
// way the text protocol would. Non-finite floats become "NaN", "Infinity"
// and "-Infinity", bytea becomes \x hex and UUIDs their canonical form.
func JSONValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return jsonFloat(x)
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return jsonFloat(f)
		}
		return x
	case []byte:
		return FormatCell(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = JSONValue(item)
		}
		return out
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

// JSONRows applies JSONValue to every cell.
func JSONRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = JSONValue(v)
		}
		out[i] = vals
	}
	return out
}

func jsonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	default:
		return "-Infinity"
	}
}
