package supabase

import "context"

// Executor is the CRUD surface shared by Client and Tx. Repositories depend on
// it so the same code runs inside and outside a transaction.
type Executor interface {
	Select(ctx context.Context, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) (*InsertResult, error)
	Update(ctx context.Context, table string, patch Record, where Filter) (int64, error)
	Delete(ctx context.Context, table string, where Filter) (int64, error)
}

// Strategy executes operations against one backend path.
type Strategy interface {
	Executor
	Name() string
	Call(ctx context.Context, name string, params Record) (any, error)
}

// InsertResult is returned for every successful insert, including the case
// where the backend answered without a body.
type InsertResult struct {
	Rows []Record
}

// Record returns the first inserted row, or nil when the backend returned none.
func (r *InsertResult) Record() Record {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}
