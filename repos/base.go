package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"mc.forecast/config"
	q "mc.forecast/queries"
)

type Postgres struct {
	db *pgxpool.Pool
}

func GetPostgresConnection(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing pgx connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error making new pgx pool: %w", err)
	}

	return &Postgres{pool}, nil
}

// Migrate creates the tables if they are missing, safe to run on every start
func (pg *Postgres) Migrate(ctx context.Context) error {
	if _, err := pg.db.Exec(ctx, q.Get(q.QueryHelper.Schema.Tables)); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

func (pg *Postgres) GetTransaction(ctx context.Context) (pgx.Tx, error) {
	return pg.db.Begin(ctx)
}

func (pg *Postgres) Ping(ctx context.Context) error {
	return pg.db.Ping(ctx)
}

func (pg *Postgres) Close() {
	pg.db.Close()
}

func (pg *Postgres) BulkInsert(ctx context.Context, tableName string, columns []string, data [][]any, tx pgx.Tx) (int64, error) {
	if tx == nil {
		return pg.db.CopyFrom(ctx, pgx.Identifier{tableName}, columns, pgx.CopyFromRows(data))
	}
	return tx.CopyFrom(ctx, pgx.Identifier{tableName}, columns, pgx.CopyFromRows(data))
}

func Query[T any](ctx context.Context, pg *Postgres, query string, args pgx.NamedArgs) ([]*T, error) {
	rows, err := pg.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("unable to query: %w", err)
	}
	defer rows.Close()

	res, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("error occured while collecting rows in query: %w", err)
	}

	result := make([]*T, len(res))
	for i := range res {
		result[i] = &res[i]
	}

	return result, nil
}

// QuerySingle returns nil without an error when nothing matched
func QuerySingle[T any](ctx context.Context, pg *Postgres, query string, args pgx.NamedArgs) (*T, error) {
	res, err := Query[T](ctx, pg, query, args)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	if len(res) > 1 {
		return nil, fmt.Errorf("multiple results found")
	}

	return res[0], nil
}

func (pg *Postgres) exec(ctx context.Context, tx pgx.Tx, query string, args pgx.NamedArgs) error {
	var err error
	if tx == nil {
		_, err = pg.db.Exec(ctx, query, args)
	} else {
		_, err = tx.Exec(ctx, query, args)
	}
	return err
}

func (pg *Postgres) queryRow(ctx context.Context, tx pgx.Tx, query string, args pgx.NamedArgs) pgx.Row {
	if tx == nil {
		return pg.db.QueryRow(ctx, query, args)
	}
	return tx.QueryRow(ctx, query, args)
}

// inTransaction commits when fn succeeds and rolls back otherwise
func (pg *Postgres) inTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := pg.GetTransaction(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
