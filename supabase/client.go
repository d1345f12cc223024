package supabase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/weekly-finals/db"
	"github.com/jmoiron/sqlx"
)

type Config struct {
	URL         string
	APIKey      string
	// ServiceKey, when set, is sent as the bearer token instead of APIKey.
	ServiceKey  string
	DatabaseURL string
	Timeout     time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSQLDB supplies an already opened connection instead of dialing
// DatabaseURL on first use.
func WithSQLDB(conn *sqlx.DB) Option {
	return func(c *Client) { c.sqlDB = conn }
}

// Client presents one CRUD contract over the REST and SQL strategies.
// Queries with joins, raw statements and transactions use SQL; everything
// else goes over REST.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics

	rest *RestStrategy
	sql  *SQLStrategy

	mu    sync.Mutex
	sqlDB *sqlx.DB
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, &ConfigurationError{Field: "URL", Reason: "is required"}
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, &ConfigurationError{Field: "URL", Reason: "must start with http:// or https://"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Field: "APIKey", Reason: "is required"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}

	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.rest = NewRestStrategy(RestConfig{
		BaseURL: cfg.URL,
		APIKey:  cfg.APIKey,
		Token:   cfg.ServiceKey,
		Timeout: cfg.Timeout,
	}, c.metrics)
	c.sql = newSQLStrategy(func(ctx context.Context) (sqlx.ExtContext, error) {
		return c.db(ctx)
	}, cfg.Timeout, c.metrics)
	return c, nil
}

// db returns the cached SQL pool, connecting on first use.
func (c *Client) db(ctx context.Context) (*sqlx.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sqlDB != nil {
		return c.sqlDB, nil
	}
	if c.cfg.DatabaseURL == "" {
		return nil, &ConfigurationError{Field: "DatabaseURL", Reason: "is required for SQL operations"}
	}
	conn, err := db.Connect(ctx, c.cfg.DatabaseURL, c.cfg.Timeout)
	if err != nil {
		return nil, &NetworkError{Op: "connect", Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	c.logger.Info("direct database connection established")
	c.sqlDB = conn
	return conn, nil
}

// SupportsTransactions reports whether the SQL path is configured.
func (c *Client) SupportsTransactions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sqlDB != nil || c.cfg.DatabaseURL != ""
}

func (c *Client) strategyFor(q Query) Strategy {
	if len(q.Joins) > 0 {
		return c.sql
	}
	return c.rest
}

func (c *Client) Select(ctx context.Context, q Query) ([]Record, error) {
	return c.strategyFor(q).Select(ctx, q)
}

func (c *Client) Insert(ctx context.Context, table string, rec Record) (*InsertResult, error) {
	return c.rest.Insert(ctx, table, rec)
}

func (c *Client) Update(ctx context.Context, table string, patch Record, where Filter) (int64, error) {
	return c.rest.Update(ctx, table, patch, where)
}

func (c *Client) Delete(ctx context.Context, table string, where Filter) (int64, error) {
	return c.rest.Delete(ctx, table, where)
}

// RPC calls a server-side procedure over REST, falling back to SQL for the
// allow-listed procedures.
func (c *Client) RPC(ctx context.Context, name string, params Record) (any, error) {
	result, restErr := c.rest.Call(ctx, name, params)
	if restErr == nil {
		return result, nil
	}
	if !HasFallback(name) {
		return nil, &UnsupportedProcedureError{Name: name, Cause: restErr}
	}
	if !c.SupportsTransactions() {
		return nil, restErr
	}
	c.logger.Warn("rpc over REST failed, falling back to SQL",
		slog.String("procedure", name), slog.Any("error", restErr))
	return c.sql.Call(ctx, name, params)
}

// Query runs a literal statement over SQL and returns every row.
func (c *Client) Query(ctx context.Context, query string, params ...any) ([]Record, error) {
	return c.sql.Raw(ctx, query, params...)
}

// Transaction runs work inside BEGIN/COMMIT. An error from work rolls back and
// is returned as a *TransactionError; a panic rolls back and re-panics.
func (c *Client) Transaction(ctx context.Context, work func(tx *Tx) error) (err error) {
	conn, err := c.db(ctx)
	if err != nil {
		return err
	}
	sqlTx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return sqlError("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	tx := &Tx{strategy: newSQLStrategy(func(context.Context) (sqlx.ExtContext, error) {
		return sqlTx, nil
	}, c.cfg.Timeout, c.metrics)}

	if workErr := work(tx); workErr != nil {
		rbErr := sqlTx.Rollback()
		if rbErr != nil {
			c.logger.Error("transaction rollback failed", slog.Any("error", rbErr), slog.Any("cause", workErr))
		}
		return &TransactionError{Err: workErr, RollbackErr: rbErr}
	}
	if err := sqlTx.Commit(); err != nil {
		return sqlError("commit", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	c.sqlDB = nil
	return err
}

// Tx is the Executor handed to transaction work. It must not outlive the
// Transaction call.
type Tx struct {
	strategy *SQLStrategy
}

func (t *Tx) Select(ctx context.Context, q Query) ([]Record, error) {
	return t.strategy.Select(ctx, q)
}

func (t *Tx) Insert(ctx context.Context, table string, rec Record) (*InsertResult, error) {
	return t.strategy.Insert(ctx, table, rec)
}

func (t *Tx) Update(ctx context.Context, table string, patch Record, where Filter) (int64, error) {
	return t.strategy.Update(ctx, table, patch, where)
}

func (t *Tx) Delete(ctx context.Context, table string, where Filter) (int64, error) {
	return t.strategy.Delete(ctx, table, where)
}

func (t *Tx) Query(ctx context.Context, query string, params ...any) ([]Record, error) {
	return t.strategy.Raw(ctx, query, params...)
}

var (
	_ Executor = (*Client)(nil)
	_ Executor = (*Tx)(nil)
	_ Strategy = (*RestStrategy)(nil)
	_ Strategy = (*SQLStrategy)(nil)
)
