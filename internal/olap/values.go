package olap

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numberPrinter groups thousands the way the Standard cell format does.
var numberPrinter = message.NewPrinter(language.English)

// normalize converts a driver value into int64, float64, *big.Int or
// string. Drivers disagree on the Go type of SUM: SQLite returns int64,
// DuckDB returns *big.Int for HUGEINT, pgx returns NUMERIC as text.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return new(big.Int).SetUint64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		return x
	case []byte:
		return normalize(string(x))
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
		return x
	case interface{ Float64() float64 }:
		return x.Float64()
	default:
		return x
	}
}

// formatValue renders a cell value. Empty cells render as "".
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return numberPrinter.Sprintf("%d", x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return numberPrinter.Sprintf("%d", int64(x))
		}
		return numberPrinter.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}

// toFloat returns v as a float64 when it is numeric.
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	default:
		return 0, false
	}
}

// compareValues orders cell values: empty cells first, then numbers, then
// anything else by its text.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	switch {
	case aok && bok:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
