package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"mc.forecast/config"
	m "mc.forecast/models"
)

var testNow = time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)

func testSettings() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		MarketData: config.MarketDataConfig{
			VsCurrency:   "usd",
			HistoryStart: "2022-11-01",
		},
		Simulation: config.SimulationConfig{
			Simulations: 100,
			Steps:       5,
			Start:       1.0,
			Workers:     4,
			BatchSize:   25,
		},
		Sync: config.SyncConfig{RefreshInterval: 24 * time.Hour},
	}
}

func newTestContext(store Store, md MarketData) *ServiceContext {
	return &ServiceContext{
		Context:    context.Background(),
		Store:      store,
		MarketData: md,
		Settings:   testSettings(),
		Metrics:    NewMetrics(),
		Now:        func() time.Time { return testNow },
	}
}

// mockChart is a daily series ending at end, wiggling around 100
func mockChart(coin string, days int, end time.Time) *m.MarketChart {
	prices := make([]m.ChartValue, days)
	price := 100.0
	for i := range days {
		price *= 1 + 0.02*math.Sin(float64(i))
		prices[i] = m.ChartValue{
			Timestamp: end.AddDate(0, 0, i-days+1),
			Value:     null.FloatFrom(price),
		}
	}
	return &m.MarketChart{Coin: coin, VsCurrency: "usd", Prices: prices}
}

type fakeMarketData struct {
	mu       sync.Mutex
	chart    *m.MarketChart
	err      error
	calls    int
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeMarketData) GetMarketChartRange(ctx context.Context, coin, vsCurrency string, from, to time.Time) (*m.MarketChart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}

	chart := *f.chart
	chart.Coin = coin
	return &chart, nil
}

type fakeStore struct {
	mu sync.Mutex

	metadata map[string]*m.CoinMetadata
	prices   map[int32][]*m.CoinPriceRow
	runs     map[uuid.UUID]*m.SimulationRun
	bands    map[uuid.UUID]*m.SimulationResult

	historyErr error
	nextId     int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		metadata: map[string]*m.CoinMetadata{},
		prices:   map[int32][]*m.CoinPriceRow{},
		runs:     map[uuid.UUID]*m.SimulationRun{},
		bands:    map[uuid.UUID]*m.SimulationResult{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) GetCoinMetadata(ctx context.Context, coin, vsCurrency string) (*m.CoinMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if md, ok := f.metadata[coin+"/"+vsCurrency]; ok {
		cp := *md
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetMostRecentTimestamp(ctx context.Context, coin, vsCurrency string) (null.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	md, ok := f.metadata[coin+"/"+vsCurrency]
	if !ok || len(f.prices[md.Id]) == 0 {
		return null.Time{}, nil
	}

	var latest time.Time
	for _, r := range f.prices[md.Id] {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return null.TimeFrom(latest), nil
}

func (f *fakeStore) GetPriceHistory(ctx context.Context, coin, vsCurrency string, from time.Time) ([]m.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.historyErr != nil {
		return nil, f.historyErr
	}

	md, ok := f.metadata[coin+"/"+vsCurrency]
	if !ok {
		return nil, nil
	}

	var res []m.PricePoint
	for _, r := range f.prices[md.Id] {
		if r.Price.Valid && !r.Timestamp.Before(from) {
			res = append(res, m.PricePoint{Timestamp: r.Timestamp, Price: r.Price.Float64})
		}
	}
	slices.SortFunc(res, func(a, b m.PricePoint) int { return a.Timestamp.Compare(b.Timestamp) })
	return res, nil
}

func (f *fakeStore) SaveCoinHistory(ctx context.Context, metadata *m.CoinMetadata, rows []*m.CoinPriceRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if metadata.Id == 0 {
		f.nextId++
		metadata.Id = f.nextId
	}
	cp := *metadata
	f.metadata[metadata.Coin+"/"+metadata.VsCurrency] = &cp

	for _, r := range rows {
		r.CoinId = metadata.Id
		for _, existing := range f.prices[metadata.Id] {
			if existing.Timestamp.Equal(r.Timestamp) {
				return 0, errors.New("duplicate key value violates unique constraint")
			}
		}
		f.prices[metadata.Id] = append(f.prices[metadata.Id], r)
	}
	return int64(len(rows)), nil
}

func (f *fakeStore) InsertSimulationRun(ctx context.Context, run *m.SimulationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	run.CreatedAt = testNow
	cp := *run
	f.runs[run.Id] = &cp
	return nil
}

func (f *fakeStore) UpdateSimulationRunAsFailure(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	run, ok := f.runs[id]
	if !ok {
		return errors.New("unknown run")
	}
	run.Status = m.RunStatusFailure
	run.ErrorMessage = null.StringFrom(errorMessage)
	run.CompletedAt = null.TimeFrom(testNow)
	return nil
}

func (f *fakeStore) SaveSimulationResult(ctx context.Context, id uuid.UUID, params m.DistributionParameters, currentPrice null.Float, result *m.SimulationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	run, ok := f.runs[id]
	if !ok {
		return errors.New("unknown run")
	}
	run.Status = m.RunStatusSuccess
	run.Mean = null.FloatFrom(params.Mean)
	run.StdDev = null.FloatFrom(params.StdDev)
	run.CurrentPrice = currentPrice
	run.CompletedAt = null.TimeFrom(testNow)
	f.bands[id] = result
	return nil
}

func (f *fakeStore) GetSimulationRun(ctx context.Context, id uuid.UUID) (*m.SimulationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if run, ok := f.runs[id]; ok {
		cp := *run
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetSimulationBands(ctx context.Context, id uuid.UUID) (*m.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.bands[id], nil
}

// rangedMarketData answers the way the provider does: hourly points for ranges up to 90 days,
// daily points otherwise, and always a trailing point at the end of the range
type rangedMarketData struct {
	mu       sync.Mutex
	calls    int
	lastFrom time.Time
}

func (f *rangedMarketData) GetMarketChartRange(ctx context.Context, coin, vsCurrency string, from, to time.Time) (*m.MarketChart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastFrom = from

	interval := 24 * time.Hour
	if to.Sub(from) <= 90*24*time.Hour {
		interval = time.Hour
	}

	var prices []m.ChartValue
	for ts := from.Truncate(interval); ts.Before(to); ts = ts.Add(interval) {
		if ts.Before(from) {
			continue
		}
		prices = append(prices, m.ChartValue{Timestamp: ts, Value: null.FloatFrom(rangedPrice(ts))})
	}
	prices = append(prices, m.ChartValue{Timestamp: to, Value: null.FloatFrom(rangedPrice(to))})

	return &m.MarketChart{Coin: coin, VsCurrency: vsCurrency, Prices: prices}, nil
}

func rangedPrice(ts time.Time) float64 {
	return 100 * (1 + 0.05*math.Sin(float64(ts.Unix())/86400))
}
