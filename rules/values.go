package rules

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// toFloat converts numeric values, numeric strings and driver decimal types
// to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
		return f, err == nil
	case interface{ Float64() float64 }:
		return n.Float64(), true
	case *big.Int:
		if n == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	default:
		return pointerFloat(v)
	}
}

// pointerFloat handles driver decimals such as duckdb.Decimal, scanned as
// values while Float64 is declared on the pointer.
func pointerFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() == reflect.Pointer {
		return 0, false
	}
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	if f, ok := p.Interface().(interface{ Float64() float64 }); ok {
		return f.Float64(), true
	}
	return 0, false
}

// isNull treats nil and NaN as missing, matching how CSV loaders report
// empty cells.
func isNull(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(n)
	case float32:
		return math.IsNaN(float64(n))
	default:
		return false
	}
}

// distinctKey maps equal values to equal map keys: 1, int64(1) and 1.0 are
// the same value, as are equal driver decimals. Byte slices compare by
// content and instants by time. Strings are never parsed as numbers.
func distinctKey(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UnixNano()
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// formatBounds renders an inclusive range with open ends as infinities.
func formatBounds(p Params) string {
	lo, hi := "-inf", "+inf"
	if v, ok := p.Float(ParamMin); ok {
		lo = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v, ok := p.Float(ParamMax); ok {
		hi = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}

// withinBounds checks min <= v <= max, treating a missing bound as open.
func withinBounds(v float64, p Params) bool {
	if lo, ok := p.Float(ParamMin); ok && v < lo {
		return false
	}
	if hi, ok := p.Float(ParamMax); ok && v > hi {
		return false
	}
	return true
}
