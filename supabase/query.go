package supabase

import (
	"strings"
)

// Operators understood by the REST filter syntax. Keys of the form
// "column.<operator>" are split against this set.
var knownOperators = map[string]bool{
	"eq":     true,
	"neq":    true,
	"gt":     true,
	"gte":    true,
	"lt":     true,
	"lte":    true,
	"like":   true,
	"ilike":  true,
	"is":     true,
	"in":     true,
	"cs":     true,
	"cd":     true,
	"not.eq": true,
	"not.is": true,
	"not.in": true,
}

// Condition is a single filter term. Op is empty for the plain key=value form.
type Condition struct {
	Key   string
	Op    string
	Value any
}

// Filter keeps conditions in caller order.
type Filter []Condition

func Where(key string, value any) Condition {
	return Condition{Key: key, Value: value}
}

func WhereOp(key, op string, value any) Condition {
	return Condition{Key: key, Op: op, Value: value}
}

// Eq builds a filter of plain equality terms from alternating key/value pairs.
func Eq(pairs ...any) Filter {
	f := make(Filter, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		f = append(f, Where(key, pairs[i+1]))
	}
	return f
}

// splitKeyOperator separates "score.gte" into ("score", "gte"). Keys without a
// recognised operator suffix are returned unchanged with an empty operator.
func splitKeyOperator(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		if op := key[i+1:]; knownOperators[op] {
			return key[:i], op
		}
	}
	return key, ""
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Order struct {
	Column    string
	Direction Direction
}

func (o Order) String() string {
	dir := o.Direction
	if dir == "" {
		dir = Asc
	}
	return o.Column + "." + string(dir)
}

// ParseOrder accepts "col.direction" or a comma list of them.
func ParseOrder(s string) []Order {
	var out []Order
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, dir := part, Asc
		if idx := strings.LastIndex(part, "."); idx > 0 {
			switch Direction(strings.ToLower(part[idx+1:])) {
			case Asc:
				col = part[:idx]
			case Desc:
				col, dir = part[:idx], Desc
			}
		}
		out = append(out, Order{Column: col, Direction: dir})
	}
	return out
}

type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
)

// Join is only expressible over SQL; its presence routes a query to the SQL strategy.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    string
}

type Query struct {
	Table   string
	Alias   string
	Columns string
	Where   Filter
	Order   []Order
	Limit   int
	Offset  int
	Joins   []Join
}

// normalizeColumns strips whitespace around a comma separated column list.
func normalizeColumns(columns string) string {
	columns = strings.TrimSpace(columns)
	if columns == "" || columns == "*" {
		return "*"
	}
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ",")
}
