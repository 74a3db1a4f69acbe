package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/ucmsv2/authcode-service/pkg/ctxs"
	"gitlab.com/ucmsv2/authcode-service/pkg/env"
)

type PoolArgs struct {
	DSN      string
	Mode     env.Mode
	MaxConns int32
}

func NewPgxPool(ctx context.Context, args PoolArgs) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(args.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgdsn: %w", err)
	}
	if args.MaxConns > 0 {
		cfg.MaxConns = args.MaxConns
	}

	opts := []otelpgx.Option{
		otelpgx.WithTrimSQLInSpanName(),
	}
	if args.Mode == env.Prod {
		opts = append(opts, otelpgx.WithDisableSQLStatementInAttributes()) // no raw SQL in prod spans
	}

	cfg.ConnConfig.Tracer = otelpgx.NewTracer(opts...)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// MigrateDSN rewrites a postgres:// DSN to the scheme the migrate pgx/v5 driver registers.
func MigrateDSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Migrate applies every pending up migration found under dir in fsys.
func Migrate(dsn string, fsys fs.FS, dir string) error {
	driver, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}
	defer driver.Close()

	m, err := migrate.NewWithSourceInstance("iofs", driver, MigrateDSN(dsn))
	if err != nil {
		return fmt.Errorf("failed to init migrate: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// WithTx runs fn inside a transaction bound to the context handed to fn.
// The transaction commits when fn returns nil and rolls back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(ctxs.WithTx(ctx, tx), tx)
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFrom returns the transaction bound to ctx, or pool when there is none.
func QuerierFrom(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctxs.Tx(ctx); ok {
		return tx
	}
	return pool
}
