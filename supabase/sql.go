package supabase

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// runnerFunc yields the connection or transaction statements run on. It is
// resolved per call so the client can connect lazily.
type runnerFunc func(ctx context.Context) (sqlx.ExtContext, error)

// SQLStrategy runs operations as statements on a direct Postgres connection.
type SQLStrategy struct {
	runner  runnerFunc
	timeout time.Duration
	metrics *Metrics
}

func newSQLStrategy(runner runnerFunc, timeout time.Duration, metrics *Metrics) *SQLStrategy {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &SQLStrategy{runner: runner, timeout: timeout, metrics: metrics}
}

func (s *SQLStrategy) Name() string { return "sql" }

// sqlBuilder accumulates positional arguments while a statement is assembled.
type sqlBuilder struct {
	strings.Builder
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

var sqlOperators = map[string]string{
	"eq":     "=",
	"neq":    "<>",
	"not.eq": "<>",
	"gt":     ">",
	"gte":    ">=",
	"lt":     "<",
	"lte":    "<=",
	"like":   "LIKE",
	"ilike":  "ILIKE",
	"cs":     "@>",
	"cd":     "<@",
}

// quoteColumn quotes each dotted part of a possibly qualified column name.
func quoteColumn(col string) string {
	parts := strings.Split(col, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// condition mirrors the REST precedence so both paths agree on meaning.
func (b *sqlBuilder) condition(c Condition) (string, error) {
	if c.Op != "" {
		return b.operator(quoteColumn(c.Key), c.Op, c.Value)
	}
	if v, ok := c.Value.(bool); ok {
		return quoteColumn(c.Key) + " = " + b.arg(v), nil
	}
	if c.Value == nil {
		col, op := splitKeyOperator(c.Key)
		if op == "not.is" {
			return quoteColumn(col) + " IS NOT NULL", nil
		}
		return quoteColumn(col) + " IS NULL", nil
	}
	if col, op := splitKeyOperator(c.Key); op != "" {
		return b.operator(quoteColumn(col), op, c.Value)
	}
	return quoteColumn(c.Key) + " = " + b.arg(c.Value), nil
}

func (b *sqlBuilder) operator(col, op string, v any) (string, error) {
	switch op {
	case "is", "not.is":
		kw := "IS"
		if op == "not.is" {
			kw = "IS NOT"
		}
		switch val := v.(type) {
		case nil:
			return col + " " + kw + " NULL", nil
		case bool:
			if val {
				return col + " " + kw + " TRUE", nil
			}
			return col + " " + kw + " FALSE", nil
		case string:
			switch strings.ToLower(val) {
			case "null":
				return col + " " + kw + " NULL", nil
			case "true", "false":
				return col + " " + kw + " " + strings.ToUpper(val), nil
			}
		}
		return "", fmt.Errorf("unsupported value %v for %s", v, op)
	case "in", "not.in":
		items, ok := sliceItems(v)
		if !ok {
			items = []any{v}
		}
		if op == "in" {
			return col + " = ANY(" + b.arg(pq.Array(stringItems(items))) + ")", nil
		}
		return col + " <> ALL(" + b.arg(pq.Array(stringItems(items))) + ")", nil
	}
	sqlOp, ok := sqlOperators[op]
	if !ok {
		return "", fmt.Errorf("unsupported operator %q", op)
	}
	if v == nil {
		if op == "eq" {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}
	return col + " " + sqlOp + " " + b.arg(v), nil
}

// stringItems lets ANY() compare against text; Postgres casts the array to
// the column type.
func stringItems(items []any) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = formatScalar(item)
	}
	return out
}

func (b *sqlBuilder) where(f Filter) error {
	if len(f) == 0 {
		return nil
	}
	clauses := make([]string, 0, len(f))
	for _, c := range f {
		clause, err := b.condition(c)
		if err != nil {
			return err
		}
		clauses = append(clauses, clause)
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(clauses, " AND "))
	return nil
}

func buildSelect(q Query) (string, []any, error) {
	b := &sqlBuilder{}
	b.WriteString("SELECT ")
	b.WriteString(normalizeColumns(q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))
	if q.Alias != "" {
		b.WriteString(" " + pq.QuoteIdentifier(q.Alias))
	}
	for _, j := range q.Joins {
		kind := j.Kind
		if kind == "" {
			kind = InnerJoin
		}
		fmt.Fprintf(b, " %s JOIN %s", kind, pq.QuoteIdentifier(j.Table))
		if j.Alias != "" {
			b.WriteString(" " + pq.QuoteIdentifier(j.Alias))
		}
		b.WriteString(" ON " + j.On)
	}
	if err := b.where(q.Where); err != nil {
		return "", nil, err
	}
	if len(q.Order) > 0 {
		orders := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "ASC"
			if o.Direction == Desc {
				dir = "DESC"
			}
			orders[i] = quoteColumn(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + b.arg(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + b.arg(q.Offset))
	}
	return b.String(), b.args, nil
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(table string, rec Record) (string, []any) {
	b := &sqlBuilder{}
	keys := sortedKeys(rec)
	if len(keys) == 0 {
		return "INSERT INTO " + pq.QuoteIdentifier(table) + " DEFAULT VALUES RETURNING *", nil
	}
	cols := make([]string, len(keys))
	vals := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = pq.QuoteIdentifier(k)
		vals[i] = b.arg(rec[k])
	}
	fmt.Fprintf(b, "INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pq.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return b.String(), b.args
}

func buildUpdate(table string, patch Record, where Filter) (string, []any, error) {
	b := &sqlBuilder{}
	keys := sortedKeys(patch)
	if len(keys) == 0 {
		return "", nil, errors.New("update requires at least one column")
	}
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = pq.QuoteIdentifier(k) + " = " + b.arg(patch[k])
	}
	b.WriteString("UPDATE " + pq.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", "))
	if err := b.where(where); err != nil {
		return "", nil, err
	}
	return b.String(), b.args, nil
}

func buildDelete(table string, where Filter) (string, []any, error) {
	b := &sqlBuilder{}
	b.WriteString("DELETE FROM " + pq.QuoteIdentifier(table))
	if err := b.where(where); err != nil {
		return "", nil, err
	}
	return b.String(), b.args, nil
}

func (s *SQLStrategy) query(ctx context.Context, op, query string, args ...any) ([]Record, error) {
	runner, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := runner.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, sqlError(op, err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, sqlError(op, err)
		}
		out = append(out, normalizeRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, sqlError(op, err)
	}
	return out, nil
}

func (s *SQLStrategy) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	runner, err := s.runner(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, sqlError(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("supabase %s: failed to check affected rows: %w", op, err)
	}
	return n, nil
}

func (s *SQLStrategy) Select(ctx context.Context, q Query) (records []Record, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "select", start, err) }(time.Now())

	query, args, err := buildSelect(q)
	if err != nil {
		return nil, fmt.Errorf("supabase select %s: %w", q.Table, err)
	}
	return s.query(ctx, "select "+q.Table, query, args...)
}

func (s *SQLStrategy) Insert(ctx context.Context, table string, rec Record) (res *InsertResult, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "insert", start, err) }(time.Now())

	query, args := buildInsert(table, rec)
	rows, err := s.query(ctx, "insert "+table, query, args...)
	if err != nil {
		return nil, err
	}
	return &InsertResult{Rows: rows}, nil
}

func (s *SQLStrategy) Update(ctx context.Context, table string, patch Record, where Filter) (n int64, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "update", start, err) }(time.Now())

	if len(where) == 0 {
		return 0, ErrUnfilteredMutation
	}
	query, args, err := buildUpdate(table, patch, where)
	if err != nil {
		return 0, fmt.Errorf("supabase update %s: %w", table, err)
	}
	return s.exec(ctx, "update "+table, query, args...)
}

func (s *SQLStrategy) Delete(ctx context.Context, table string, where Filter) (n int64, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "delete", start, err) }(time.Now())

	if len(where) == 0 {
		return 0, ErrUnfilteredMutation
	}
	query, args, err := buildDelete(table, where)
	if err != nil {
		return 0, fmt.Errorf("supabase delete %s: %w", table, err)
	}
	return s.exec(ctx, "delete "+table, query, args...)
}

// Call invokes an allow-listed procedure as SELECT * FROM fn($1, ...).
func (s *SQLStrategy) Call(ctx context.Context, name string, params Record) (result any, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "rpc", start, err) }(time.Now())

	proc, ok := fallbackProcedures[name]
	if !ok {
		return nil, &UnsupportedProcedureError{Name: name}
	}
	query, args := proc.statement(name, params)
	rows, err := s.query(ctx, "rpc "+name, query, args...)
	if err != nil {
		return nil, err
	}
	return scalarResult(name, rows), nil
}

// scalarResult unwraps the single column Postgres names after a scalar
// function, so the value has the same shape as the REST answer.
func scalarResult(name string, rows []Record) any {
	if len(rows) == 1 && len(rows[0]) == 1 {
		if v, ok := rows[0][name]; ok {
			return v
		}
	}
	return rows
}

// Raw executes a literal statement. A single map argument binds :name
// parameters, anything else binds positionally.
func (s *SQLStrategy) Raw(ctx context.Context, query string, params ...any) (records []Record, err error) {
	defer func(start time.Time) { s.metrics.observe(s.Name(), "query", start, err) }(time.Now())

	runner, err := s.runner(ctx)
	if err != nil {
		return nil, err
	}
	args := params
	if len(params) == 1 {
		if named, ok := namedArg(params[0]); ok {
			query, args, err = runner.BindNamed(query, named)
			if err != nil {
				return nil, fmt.Errorf("supabase query: failed to bind named parameters: %w", err)
			}
		}
	}
	return s.query(ctx, "query", runner.Rebind(query), args...)
}

func namedArg(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Record:
		return map[string]any(m), true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// sqlError maps driver failures onto the client's error kinds.
func sqlError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &RemoteRequestError{
			Op:         op,
			StatusCode: pqStatus(pqErr.Code),
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Details:    pqErr.Detail,
			Hint:       pqErr.Hint,
		}
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &NetworkError{Op: op, Timeout: true, Err: err}
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, context.Canceled):
		return &NetworkError{Op: op, Err: err}
	case errors.As(err, &netErr):
		return &NetworkError{Op: op, Timeout: netErr.Timeout(), Err: err}
	}
	return fmt.Errorf("supabase %s: %w", op, err)
}

func pqStatus(code pq.ErrorCode) int {
	switch {
	case code.Class() == "23":
		return 409
	case code == "42P01" || code == "42883":
		return 404
	case code == "42501":
		return 403
	case code.Class() == "28":
		return 401
	default:
		return 400
	}
}
