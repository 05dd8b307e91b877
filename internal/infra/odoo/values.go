package odoo

import (
	"strconv"
	"time"
)

// Odoo отдаёт false вместо пустых значений, many2one — как [id, "name"]

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func many2one(v any) (int64, string) {
	pair, ok := v.([]any)
	if !ok || len(pair) == 0 {
		return 0, ""
	}
	id, _ := toInt(pair[0])
	name := ""
	if len(pair) > 1 {
		name = toString(pair[1])
	}
	return id, name
}

func toDate(v any) time.Time {
	s := toString(v)
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t
		}
	}
	return time.Time{}
}
