package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"mc.forecast/config"
	m "mc.forecast/models"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrNoStore           = errors.New("no database configured")
	ErrRecentlyRefreshed = errors.New("recently refreshed")
)

// Store is the slice of the postgres repos the service needs
type Store interface {
	Ping(ctx context.Context) error

	GetCoinMetadata(ctx context.Context, coin, vsCurrency string) (*m.CoinMetadata, error)
	GetMostRecentTimestamp(ctx context.Context, coin, vsCurrency string) (null.Time, error)
	GetPriceHistory(ctx context.Context, coin, vsCurrency string, from time.Time) ([]m.PricePoint, error)
	SaveCoinHistory(ctx context.Context, metadata *m.CoinMetadata, rows []*m.CoinPriceRow) (int64, error)

	InsertSimulationRun(ctx context.Context, run *m.SimulationRun) error
	UpdateSimulationRunAsFailure(ctx context.Context, id uuid.UUID, errorMessage string) error
	SaveSimulationResult(ctx context.Context, id uuid.UUID, params m.DistributionParameters, currentPrice null.Float, result *m.SimulationResult) error
	GetSimulationRun(ctx context.Context, id uuid.UUID) (*m.SimulationRun, error)
	GetSimulationBands(ctx context.Context, id uuid.UUID) (*m.SimulationResult, error)
}

type MarketData interface {
	GetMarketChartRange(ctx context.Context, coin, vsCurrency string, from, to time.Time) (*m.MarketChart, error)
}

type ServiceContext struct {
	Context    context.Context
	Store      Store // nil when no database is configured, history then comes straight from MarketData
	MarketData MarketData
	Settings   *config.Config
	Metrics    *Metrics // optional

	Now func() time.Time
}

// WithContext returns a shallow copy bound to ctx, handlers use it so a dropped request cancels its work
func (sc *ServiceContext) WithContext(ctx context.Context) *ServiceContext {
	c := *sc
	c.Context = ctx
	return &c
}

func (sc *ServiceContext) now() time.Time {
	if sc.Now != nil {
		return sc.Now()
	}
	return time.Now()
}
