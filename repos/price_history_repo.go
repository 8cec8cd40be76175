package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	m "mc.forecast/models"
	q "mc.forecast/queries"
)

// GetPriceHistory returns the stored prices on or after from, oldest first, null prices skipped
func (pg *Postgres) GetPriceHistory(ctx context.Context, coin, vsCurrency string, from time.Time) ([]m.PricePoint, error) {
	args := pgx.NamedArgs{
		"coin":        coin,
		"vs_currency": vsCurrency,
		"from":        from,
	}

	res, err := Query[m.PricePoint](ctx, pg, q.Get(q.QueryHelper.Select.PriceHistory), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query price history for %s/%s: %w", coin, vsCurrency, err)
	}

	points := make([]m.PricePoint, len(res))
	for i, p := range res {
		points[i] = *p
	}
	return points, nil
}

// GetMostRecentTimestamp is invalid when nothing is stored for the coin
func (pg *Postgres) GetMostRecentTimestamp(ctx context.Context, coin, vsCurrency string) (null.Time, error) {
	args := pgx.NamedArgs{
		"coin":        coin,
		"vs_currency": vsCurrency,
	}

	var ts *time.Time
	if err := pg.db.QueryRow(ctx, q.Get(q.QueryHelper.Select.MostRecentTimestamp), args).Scan(&ts); err != nil {
		return null.Time{}, fmt.Errorf("unable to query most recent timestamp for %s/%s: %w", coin, vsCurrency, err)
	}

	return null.TimeFromPtr(ts), nil
}

func (pg *Postgres) InsertPriceHistory(ctx context.Context, rows []*m.CoinPriceRow, tx pgx.Tx) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.CoinId, r.Timestamp, r.Price.Ptr(), r.MarketCap.Ptr(), r.TotalVolume.Ptr()}
	}

	columns := []string{"coin_id", "timestamp", "price", "market_cap", "total_volume"}
	ct, err := pg.BulkInsert(ctx, "coin_price_history", columns, data, tx)
	if err != nil {
		return 0, fmt.Errorf("error bulk inserting price history: %w", err)
	}
	return ct, nil
}

// SaveCoinHistory stores new rows and moves last refreshed forward in one transaction.
// metadata without an id is inserted first, rows are re-keyed to its id.
func (pg *Postgres) SaveCoinHistory(ctx context.Context, metadata *m.CoinMetadata, rows []*m.CoinPriceRow) (int64, error) {
	var inserted int64
	err := pg.inTransaction(ctx, func(tx pgx.Tx) error {
		if metadata.Id == 0 {
			if err := pg.InsertCoinMetadata(ctx, metadata, tx); err != nil {
				return err
			}
		} else if err := pg.UpdateLastRefreshed(ctx, metadata.Id, metadata.LastRefreshed, tx); err != nil {
			return err
		}

		for _, r := range rows {
			r.CoinId = metadata.Id
		}

		ct, err := pg.InsertPriceHistory(ctx, rows, tx)
		inserted = ct
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error saving history for %s/%s: %w", metadata.Coin, metadata.VsCurrency, err)
	}
	return inserted, nil
}
