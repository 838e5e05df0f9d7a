package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garnizeh/ats/internal/db"
)

// Dialect selects SQL flavour differences between the supported drivers.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rows is the cursor shape shared by database/sql and pgx.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row is a single-row result. Scan returns an error matching sql.ErrNoRows
// when the query produced nothing.
type Row interface {
	Scan(dest ...any) error
}

// Conn is the minimal query surface the store needs. Queries use `?`
// placeholders; connections rewrite them for their driver.
type Conn interface {
	Dialect() Dialect
	Query(ctx context.Context, q string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, q string, args ...any) Row
	Exec(ctx context.Context, q string, args ...any) error
	// InTx runs fn inside a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Conn) error) error
	Ping(ctx context.Context) error
}

// NewSQLite adapts the internal SQLite wrapper.
func NewSQLite(d *db.DB) Conn {
	return &sqliteConn{db: d}
}

type sqliteConn struct {
	db *db.DB
	tx *sql.Tx
}

func (c *sqliteConn) Dialect() Dialect { return SQLite }

func (c *sqliteConn) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	args = sqliteArgs(args)
	var (
		rows *sql.Rows
		err  error
	)
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, q, args...)
	} else {
		rows, err = c.db.QueryRows(ctx, q, args...)
	}
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (c *sqliteConn) QueryRow(ctx context.Context, q string, args ...any) Row {
	args = sqliteArgs(args)
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, q, args...)
	}
	return c.db.QueryRow(ctx, q, args...)
}

func (c *sqliteConn) Exec(ctx context.Context, q string, args ...any) error {
	args = sqliteArgs(args)
	var err error
	if c.tx != nil {
		_, err = c.tx.ExecContext(ctx, q, args...)
	} else {
		_, err = c.db.Exec(ctx, q, args...)
	}
	return err
}

func (c *sqliteConn) InTx(ctx context.Context, fn func(ctx context.Context, tx Conn) error) error {
	if c.tx != nil {
		return fn(ctx, c)
	}
	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &sqliteConn{db: c.db, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *sqliteConn) Ping(ctx context.Context) error { return c.db.Ping(ctx) }

// sqliteArgs stores booleans as 0/1 to match the INTEGER flag columns.
func sqliteArgs(args []any) []any {
	for i, a := range args {
		if b, ok := a.(bool); ok {
			if b {
				args[i] = int64(1)
			} else {
				args[i] = int64(0)
			}
		}
	}
	return args
}

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

// NewPostgres adapts a pgx pool.
func NewPostgres(pool *pgxpool.Pool) Conn {
	return &pgConn{q: pool, pool: pool}
}

// OpenPostgres creates and verifies a pgxpool connection pool.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgConn struct {
	q    pgQuerier
	pool *pgxpool.Pool
}

func (c *pgConn) Dialect() Dialect { return Postgres }

func (c *pgConn) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return c.q.Query(ctx, rebind(q), args...)
}

func (c *pgConn) QueryRow(ctx context.Context, q string, args ...any) Row {
	return c.q.QueryRow(ctx, rebind(q), args...)
}

func (c *pgConn) Exec(ctx context.Context, q string, args ...any) error {
	_, err := c.q.Exec(ctx, rebind(q), args...)
	return err
}

func (c *pgConn) InTx(ctx context.Context, fn func(ctx context.Context, tx Conn) error) error {
	if c.pool == nil {
		return fn(ctx, c)
	}
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgConn{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (c *pgConn) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Ping(ctx)
}

// rebind rewrites `?` placeholders into Postgres `$n` form.
func rebind(q string) string {
	n := strings.Count(q, "?")
	if n == 0 {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + n*2)
	i := 0
	for _, r := range q {
		if r == '?' {
			i++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(i))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
