package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	m "mc.forecast/models"
	q "mc.forecast/queries"
)

// GetCoinMetadata returns nil when the coin has never been synced
func (pg *Postgres) GetCoinMetadata(ctx context.Context, coin, vsCurrency string) (*m.CoinMetadata, error) {
	args := pgx.NamedArgs{
		"coin":        coin,
		"vs_currency": vsCurrency,
	}

	res, err := QuerySingle[m.CoinMetadata](ctx, pg, q.Get(q.QueryHelper.Select.CoinMetadata), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata for %s/%s: %w", coin, vsCurrency, err)
	}

	return res, nil
}

func (pg *Postgres) InsertCoinMetadata(ctx context.Context, metadata *m.CoinMetadata, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"coin":           metadata.Coin,
		"vs_currency":    metadata.VsCurrency,
		"last_refreshed": metadata.LastRefreshed,
	}

	if err := pg.queryRow(ctx, tx, q.Get(q.QueryHelper.Insert.CoinMetadata), args).Scan(&metadata.Id); err != nil {
		return fmt.Errorf("error inserting new coin metadata: %w", err)
	}

	return nil
}

func (pg *Postgres) UpdateLastRefreshed(ctx context.Context, id int32, lastRefreshed time.Time, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"id":             id,
		"last_refreshed": lastRefreshed,
	}

	if err := pg.exec(ctx, tx, q.Get(q.QueryHelper.Update.LastRefreshed), args); err != nil {
		return fmt.Errorf("error updating last refreshed for coin %d: %w", id, err)
	}
	return nil
}

// DeleteCoinMetadata removes the coin and, through the cascade, all of its prices
func (pg *Postgres) DeleteCoinMetadata(ctx context.Context, id int32) error {
	if err := pg.exec(ctx, nil, q.Get(q.QueryHelper.Delete.CoinMetadata), pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("error deleting coin metadata %d: %w", id, err)
	}
	return nil
}
