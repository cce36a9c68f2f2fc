package form

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IntValue coerces a decoded JSON scalar to an int. Fractions are
// truncated; booleans are 1 and 0. Non-numeric strings and containers
// do not coerce.
func IntValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		return parseInt(t.String())
	case string:
		return parseInt(strings.TrimSpace(t))
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return floatToInt(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

// StringValue renders a decoded JSON value in its canonical textual form.
// Strings are returned unchanged, so the conversion is stable when
// applied again.
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
