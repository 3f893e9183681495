package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind discriminates the parameter value union.
type ValueKind string

const (
	ValueKindScalar    ValueKind = "scalar"
	ValueKindList      ValueKind = "list"
	ValueKindTimeRange ValueKind = "time_range"
)

// TimeRangeType tags an abstract calendar descriptor.
type TimeRangeType string

const (
	TimeRangeTypeYear  TimeRangeType = "YEAR"
	TimeRangeTypeMonth TimeRangeType = "MONTH"
)

// TimeRange is either abstract ({type, year, month}) straight from the parser,
// or explicit ([start, end) dates) after resolution. Dates are UTC calendar
// days formatted YYYY-MM-DD.
type TimeRange struct {
	Type  TimeRangeType `json:"type,omitempty"`
	Year  int           `json:"year,omitempty"`
	Month int           `json:"month,omitempty"`
	Start string        `json:"start,omitempty"`
	End   string        `json:"end,omitempty"`
}

// Abstract reports whether the range still needs calendar resolution.
func (t *TimeRange) Abstract() bool {
	return t.Start == "" && t.End == ""
}

// Resolve converts an abstract descriptor into an explicit half-open [start, end)
// range on the UTC calendar. Month ranges roll the year when month+1 > 12.
func (t *TimeRange) Resolve() (*TimeRange, error) {
	if !t.Abstract() {
		return t, nil
	}
	switch t.Type {
	case TimeRangeTypeYear:
		start := time.Date(t.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		return &TimeRange{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")}, nil
	case TimeRangeTypeMonth:
		if t.Month < 1 || t.Month > 12 {
			return nil, fmt.Errorf("month out of range: %d", t.Month)
		}
		start := time.Date(t.Year, time.Month(t.Month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		return &TimeRange{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")}, nil
	default:
		return nil, fmt.Errorf("unknown time range type %q", t.Type)
	}
}

// Value is the tagged union carried in ParsedIntent params and AST conditions:
// a scalar, a list, or a time range. The zero Value is an empty scalar.
type Value struct {
	Kind   ValueKind
	Scalar any
	List   []any
	Time   *TimeRange
}

// ScalarValue wraps a single literal.
func ScalarValue(v any) Value { return Value{Kind: ValueKindScalar, Scalar: v} }

// ListValue wraps an IN-style list.
func ListValue(items []any) Value { return Value{Kind: ValueKindList, List: items} }

// TimeRangeValue wraps a calendar range.
func TimeRangeValue(t *TimeRange) Value { return Value{Kind: ValueKindTimeRange, Time: t} }

// String renders the scalar form for display and cache keys.
func (v Value) String() string {
	switch v.Kind {
	case ValueKindList:
		return fmt.Sprintf("%v", v.List)
	case ValueKindTimeRange:
		if v.Time == nil {
			return ""
		}
		if v.Time.Abstract() {
			return fmt.Sprintf("%s:%d-%02d", v.Time.Type, v.Time.Year, v.Time.Month)
		}
		return fmt.Sprintf("%s..%s", v.Time.Start, v.Time.End)
	default:
		return fmt.Sprintf("%v", v.Scalar)
	}
}

// MarshalJSON writes the natural JSON form: scalars as themselves, lists as
// arrays, time ranges as objects.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindList:
		return json.Marshal(v.List)
	case ValueKindTimeRange:
		return json.Marshal(v.Time)
	default:
		return json.Marshal(v.Scalar)
	}
}

// UnmarshalJSON accepts the shapes an upstream parser may produce: strings,
// numbers, booleans, arrays, and time-range objects (abstract or explicit).
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case []any:
		*v = ListValue(t)
		return nil
	case map[string]any:
		var tr TimeRange
		if err := json.Unmarshal(data, &tr); err != nil {
			return fmt.Errorf("object value is not a time range: %w", err)
		}
		if tr.Type == "" && tr.Start == "" {
			return fmt.Errorf("object value is not a time range: %s", string(data))
		}
		*v = TimeRangeValue(&tr)
		return nil
	default:
		*v = ScalarValue(raw)
		return nil
	}
}
