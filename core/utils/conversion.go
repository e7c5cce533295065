package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToInt converts a feed or conflict value to an int. Conflict values come back
// from JSON columns as float64 or json.Number, and curators may post strings,
// so all of those are accepted as long as they hold a whole number. Fractions,
// non-numeric text, nil and values outside the int range are rejected.
func ToInt(val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return intFromInt64(v)
	case int32:
		return int(v), nil
	case int16:
		return int(v), nil
	case int8:
		return int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int", v)
		}
		return intFromInt64(int64(v))
	case uint:
		return ToInt(uint64(v))
	case uint32:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint8:
		return int(v), nil
	case float64:
		return intFromFloat(v)
	case float32:
		return intFromFloat(float64(v))
	case json.Number:
		return intFromText(string(v))
	case string:
		return intFromText(v)
	case []byte:
		return intFromText(string(v))
	case nil:
		return 0, fmt.Errorf("no value")
	default:
		return 0, fmt.Errorf("unsupported type %T", val)
	}
}

func intFromInt64(v int64) (int, error) {
	if v > math.MaxInt || v < math.MinInt {
		return 0, fmt.Errorf("%d overflows int", v)
	}
	return int(v), nil
}

func intFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v overflows int", f)
	}
	return intFromInt64(int64(f))
}

func intFromText(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return intFromFloat(f)
}

// ToString renders a value in the form used to compare source observations:
// 2, int64(2), float64(2) and "2" all render as "2".
func ToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool reads a query-string style flag: 1, true, yes and on (any case) are true.
func ToBool(val any) bool {
	var s string
	switch v := val.(type) {
	case bool:
		return v
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		i, err := ToInt(v)
		return err == nil && i == 1
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
