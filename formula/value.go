package formula

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IsBlank reports whether a field value is blank: nil, an empty string,
// or a whitespace-only string. This is the blank definition shared by
// every caller in the module.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// isTruthy coerces an evaluation result to boolean. Only bool true,
// non-zero numbers, and the strings "true"/"false" participate; anything
// else is false, the conservative value for a violation check.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	case nil:
		return false
	default:
		if d, ok := toDecimal(v); ok {
			return !d.IsZero()
		}
		return false
	}
}

// toDecimal coerces a value to a decimal, accepting native numeric
// types, decimals, json.Number, and numeric strings.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// toText renders a value the way formula text functions see it.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case decimal.Decimal:
		return t.String()
	case time.Time:
		return t.Format("2006-01-02")
	default:
		if d, ok := toDecimal(v); ok {
			return d.String()
		}
		return fmt.Sprintf("%v", v)
	}
}

// dateFormats are the layouts accepted when a date arrives as text.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// toTime coerces a value to a time, accepting time.Time and common
// Salesforce date/datetime string layouts.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateFormats {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// equals compares two values for formula equality: numeric when both
// sides coerce to numbers, temporal when both coerce to times, text
// otherwise. Blank equals blank.
func equals(l, r any) bool {
	if IsBlank(l) && IsBlank(r) {
		return true
	}
	if IsBlank(l) != IsBlank(r) {
		return false
	}

	if lb, lok := l.(bool); lok {
		if rb, rok := r.(bool); rok {
			return lb == rb
		}
	}

	if ld, ok := toDecimal(l); ok {
		if rd, ok := toDecimal(r); ok {
			return ld.Equal(rd)
		}
	}

	if lt, ok := l.(time.Time); ok {
		if rt, ok := toTime(r); ok {
			return lt.Equal(rt)
		}
	}
	if rt, ok := r.(time.Time); ok {
		if lt, ok := toTime(l); ok {
			return lt.Equal(rt)
		}
	}

	return toText(l) == toText(r)
}

// compare orders two values; ok is false when they are incomparable.
func compare(l, r any) (int, bool) {
	if ld, ok := toDecimal(l); ok {
		if rd, ok := toDecimal(r); ok {
			return ld.Cmp(rd), true
		}
	}

	lt, lok := toTime(l)
	rt, rok := toTime(r)
	if lok && rok {
		switch {
		case lt.Before(rt):
			return -1, true
		case lt.After(rt):
			return 1, true
		default:
			return 0, true
		}
	}

	ls, lIsStr := l.(string)
	rs, rIsStr := r.(string)
	if lIsStr && rIsStr {
		return strings.Compare(ls, rs), true
	}

	return 0, false
}
