package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// PricePoint is a single (timestamp, price) observation handed to the returns preprocessor
type PricePoint struct {
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Price     float64   `db:"price" json:"price"`
}

// MarketChart mirrors the market_chart/range payload, values the provider sent as null stay invalid
type MarketChart struct {
	Coin         string
	VsCurrency   string
	Prices       []ChartValue
	MarketCaps   []ChartValue
	TotalVolumes []ChartValue
}

type ChartValue struct {
	Timestamp time.Time
	Value     null.Float
}

// PricePoints returns the valid prices in the order the provider sent them (oldest first)
func (mc *MarketChart) PricePoints() []PricePoint {
	res := make([]PricePoint, 0, len(mc.Prices))
	for _, p := range mc.Prices {
		if !p.Value.Valid {
			continue
		}
		res = append(res, PricePoint{Timestamp: p.Timestamp, Price: p.Value.Float64})
	}
	return res
}

// CurrentPrice is the most recent valid price, invalid if there is none
func (mc *MarketChart) CurrentPrice() null.Float {
	for i := len(mc.Prices) - 1; i >= 0; i-- {
		if mc.Prices[i].Value.Valid {
			return mc.Prices[i].Value
		}
	}
	return null.Float{}
}

// PriceRows joins prices, market caps and volumes on timestamp for storage
func (mc *MarketChart) PriceRows(coinId int32) []*CoinPriceRow {
	caps := make(map[int64]null.Float, len(mc.MarketCaps))
	for _, v := range mc.MarketCaps {
		caps[v.Timestamp.UnixMilli()] = v.Value
	}

	volumes := make(map[int64]null.Float, len(mc.TotalVolumes))
	for _, v := range mc.TotalVolumes {
		volumes[v.Timestamp.UnixMilli()] = v.Value
	}

	res := make([]*CoinPriceRow, len(mc.Prices))
	for i, p := range mc.Prices {
		key := p.Timestamp.UnixMilli()
		res[i] = &CoinPriceRow{
			CoinId:      coinId,
			Timestamp:   p.Timestamp,
			Price:       p.Value,
			MarketCap:   caps[key],
			TotalVolume: volumes[key],
		}
	}
	return res
}

// DailyCloses keeps the last point of every UTC day, points must be oldest first.
// Short provider ranges and the trailing "now" point are sub-daily and would skew daily returns.
func DailyCloses(points []PricePoint) []PricePoint {
	res := make([]PricePoint, 0, len(points))
	for _, p := range points {
		day := p.Timestamp.UTC().Truncate(24 * time.Hour)
		if n := len(res); n > 0 && res[n-1].Timestamp.UTC().Truncate(24*time.Hour).Equal(day) {
			res[n-1] = p
			continue
		}
		res = append(res, p)
	}
	return res
}
