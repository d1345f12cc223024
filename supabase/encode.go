package supabase

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// encodeCondition renders one condition as a REST filter pair. The checks run
// in a fixed order: explicit operator, bool, nil, operator embedded in the key,
// plain equality. Bools must be caught before the generic scalar branch.
func encodeCondition(c Condition) (string, string) {
	if c.Op != "" {
		return c.Key, c.Op + "." + encodeOperand(c.Op, c.Value)
	}
	if b, ok := c.Value.(bool); ok {
		return c.Key, "eq." + strconv.FormatBool(b)
	}
	if c.Value == nil {
		if col, op := splitKeyOperator(c.Key); op != "" {
			return col, op + ".null"
		}
		return c.Key, "is.null"
	}
	if col, op := splitKeyOperator(c.Key); op != "" {
		return col, op + "." + encodeOperand(op, c.Value)
	}
	return c.Key, "eq." + url.QueryEscape(formatScalar(c.Value))
}

func encodeOperand(op string, v any) string {
	if v == nil {
		return "null"
	}
	if op == "in" || op == "not.in" {
		if items, ok := sliceItems(v); ok {
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = url.QueryEscape(formatScalar(item))
			}
			return "(" + strings.Join(parts, ",") + ")"
		}
	}
	return url.QueryEscape(formatScalar(v))
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func sliceItems(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// encodeFilter renders conditions in caller order as a query string fragment.
func encodeFilter(f Filter) string {
	var b strings.Builder
	for _, c := range f {
		key, value := encodeCondition(c)
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}

// encodeSelect builds the query string for a REST select.
func encodeSelect(q Query) string {
	parts := []string{"select=" + url.QueryEscape(normalizeColumns(q.Columns))}
	if filter := encodeFilter(q.Where); filter != "" {
		parts = append(parts, filter)
	}
	if len(q.Order) > 0 {
		orders := make([]string, len(q.Order))
		for i, o := range q.Order {
			orders[i] = o.String()
		}
		parts = append(parts, "order="+url.QueryEscape(strings.Join(orders, ",")))
	}
	if q.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		parts = append(parts, "offset="+strconv.Itoa(q.Offset))
	}
	return strings.Join(parts, "&")
}
