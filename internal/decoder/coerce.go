package decoder

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// kind is the coercion rule applied to a candidate value.
type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindID      // string or integral number, rendered as decimal text
	kindAddress // non-blank string
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindBool:
		return "bool"
	case kindTime:
		return "timestamp"
	case kindID:
		return "id"
	case kindAddress:
		return "address"
	}
	return "unknown"
}

// value holds a coerced scalar. Only the member matching the field kind is set.
type value struct {
	s string
	i int64
	f float64
	b bool
	t domain.Timestamp
}

// timeLayouts are tried in order. Layouts without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	time.RubyDate, // twitter created_at
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// coerce converts a raw decoded JSON value according to k.
// The bool result is false when the value has the wrong type for k.
func coerce(k kind, raw interface{}) (value, bool) {
	switch k {
	case kindString:
		s, ok := raw.(string)
		return value{s: s}, ok
	case kindAddress:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return value{}, false
		}
		return value{s: s}, true
	case kindInt:
		i, ok := toInt(raw)
		return value{i: i}, ok
	case kindFloat:
		f, ok := toFloat(raw)
		return value{f: f}, ok
	case kindBool:
		b, ok := toBool(raw)
		return value{b: b}, ok
	case kindTime:
		t, ok := toTime(raw)
		return value{t: t}, ok
	case kindID:
		switch v := raw.(type) {
		case string:
			return value{s: v}, true
		case json.Number:
			if i, ok := integral(v); ok {
				return value{s: strconv.FormatInt(i, 10)}, true
			}
		}
	}
	return value{}, false
}

func toInt(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		return integral(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// integral accepts any JSON number with no fractional part that fits in
// int64, including forms such as 150.0 and 1.2e3.
func integral(n json.Number) (int64, bool) {
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(raw interface{}) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f != 0, true
		}
	case string:
		s := strings.TrimSpace(v)
		switch {
		case strings.EqualFold(s, "true"):
			return true, true
		case strings.EqualFold(s, "false"):
			return false, true
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i != 0, true
		}
	}
	return false, false
}

func toTime(raw interface{}) (domain.Timestamp, bool) {
	s, ok := raw.(string)
	if !ok {
		return domain.Timestamp{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Timestamp{}, false
	}
	if t, ok := parseTime(s); ok {
		return domain.KnownAt(t), true
	}
	return domain.Timestamp{}, false
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
