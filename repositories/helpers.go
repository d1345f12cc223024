package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Dosada05/weekly-finals/supabase"
)

const dateLayout = "2006-01-02"

// SQLExecutor is what repositories run against: the client itself or a
// transaction opened on it.
type SQLExecutor = supabase.Executor

// Caller invokes server-side procedures.
type Caller interface {
	RPC(ctx context.Context, name string, params supabase.Record) (any, error)
}

// Counter is implemented by repositories that back dashboard totals.
type Counter interface {
	Count(ctx context.Context, where supabase.Filter) (int, error)
}

func checkAffectedRows(n int64, notFoundError error) error {
	if n == 0 {
		return notFoundError
	}
	return nil
}

// isUniqueViolation covers both paths: PostgREST answers 409 with the
// Postgres code, the SQL path maps 23505 to the same error.
func isUniqueViolation(err error) bool {
	var re *supabase.RemoteRequestError
	return errors.As(err, &re) && (re.Code == "23505" || (re.Code == "" && re.StatusCode == 409))
}

func isForeignKeyViolation(err error) bool {
	var re *supabase.RemoteRequestError
	return errors.As(err, &re) && re.Code == "23503"
}

func timePtr(rec supabase.Record, key string) *time.Time {
	if rec.IsNull(key) {
		return nil
	}
	t := rec.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// nullable maps a nil pointer to an explicit null column.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// rowsToRecords turns a procedure result into rows. Procedures returning a
// single object yield one row; scalars yield none.
func rowsToRecords(out any) []supabase.Record {
	switch v := out.(type) {
	case []supabase.Record:
		return v
	case supabase.Record:
		return []supabase.Record{v}
	}
	return nil
}

// countRows counts matching rows by fetching their ids only.
func countRows(ctx context.Context, exec SQLExecutor, table string, where supabase.Filter) (int, error) {
	rows, err := exec.Select(ctx, supabase.Query{Table: table, Columns: "id", Where: where})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
