package service

import (
	"fmt"
	"log"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

// SyncCoinPriceHistory fetches the whole history window for coin and saves the rows newer than what is
// stored, along with the new last refreshed time, in one transaction. The provider only answers with daily
// points for ranges over 90 days, so the window is never shortened to the stored tail. Coins refreshed within
// the refresh interval are skipped with ErrRecentlyRefreshed. Returns the number of rows inserted.
func (sc *ServiceContext) SyncCoinPriceHistory(coin string) (int64, error) {
	if sc.Store == nil {
		return 0, ErrNoStore
	}

	vsCurrency := sc.Settings.MarketData.VsCurrency
	now := sc.now().UTC()

	md, err := sc.Store.GetCoinMetadata(sc.Context, coin, vsCurrency)
	if err != nil {
		return 0, fmt.Errorf("error determining if metadata exists in sync data: %w", err)
	}

	if md == nil {
		log.Printf("adding new coin to db: %s/%s", coin, vsCurrency)
		md = &m.CoinMetadata{Coin: coin, VsCurrency: vsCurrency}
	} else if cutoff := now.Add(-sc.Settings.Sync.RefreshInterval); md.LastRefreshed.After(cutoff) {
		return 0, fmt.Errorf("%w: %s/%s was refreshed at %s, will not sync", ErrRecentlyRefreshed, coin, vsCurrency, ex.FmtShort(md.LastRefreshed))
	}

	from, err := sc.Settings.MarketData.HistoryStartDate()
	if err != nil {
		return 0, err
	}

	mrt, err := sc.Store.GetMostRecentTimestamp(sc.Context, coin, vsCurrency)
	if err != nil {
		return 0, fmt.Errorf("error getting most recent timestamp for %s: %w", coin, err)
	}

	var toInsert []*m.CoinPriceRow
	var received int
	if now.After(from) {
		chart, err := sc.MarketData.GetMarketChartRange(sc.Context, coin, vsCurrency, from, now)
		if err != nil {
			return 0, err
		}

		// stored rows come back too, they would collide on the primary key
		rows := chart.PriceRows(md.Id)
		received = len(rows)
		toInsert = ex.FilterMultiplePtr(rows, func(r *m.CoinPriceRow) bool {
			return !mrt.Valid || r.Timestamp.After(mrt.Time)
		})
	}

	md.LastRefreshed = now
	inserted, err := sc.Store.SaveCoinHistory(sc.Context, md, toInsert)
	if err != nil {
		return 0, err
	}

	log.Printf("coin %s got %d price rows from market data, inserted %d", coin, received, inserted)
	return inserted, nil
}
