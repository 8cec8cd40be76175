package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type CoinMetadata struct {
	Id            int32     `db:"id"`
	Coin          string    `db:"coin"`
	VsCurrency    string    `db:"vs_currency"`
	LastRefreshed time.Time `db:"last_refreshed"`
}

type CoinPriceRow struct {
	CoinId      int32      `db:"coin_id"`
	Timestamp   time.Time  `db:"timestamp"`
	Price       null.Float `db:"price"`
	MarketCap   null.Float `db:"market_cap"`
	TotalVolume null.Float `db:"total_volume"`
}
