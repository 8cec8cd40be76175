package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"mc.forecast/core"
	m "mc.forecast/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RunForecast validates the request, loads the coin's history, calibrates and runs the ensemble,
// then rescales the bands by the current price. With a store every run is recorded, failures included.
func (sc *ServiceContext) RunForecast(req m.ForecastRequest) (*m.ForecastResponse, error) {
	start := time.Now()

	if err := validate.Struct(req); err != nil {
		sc.Metrics.observeRun(m.RunStatusFailure, time.Since(start), 0)
		return nil, requestError(err)
	}

	settings := sc.Settings.Simulation
	vsCurrency := sc.Settings.MarketData.VsCurrency
	if req.Start == 0 {
		req.Start = settings.Start
	}

	run := &m.SimulationRun{
		Id:          uuid.New(),
		Coin:        req.Coin,
		VsCurrency:  vsCurrency,
		Simulations: int32(req.Simulations),
		Steps:       int32(req.Steps),
		Start:       req.Start,
		Seed:        req.Seed,
		Status:      m.RunStatusRunning,
	}

	log.Printf("Received request to forecast %s: %d simulations, %d steps", req.Coin, req.Simulations, req.Steps)
	if sc.Store != nil {
		if err := sc.Store.InsertSimulationRun(sc.Context, run); err != nil {
			log.Printf("Error inserting simulation run for %s: %v", req.Coin, err)
			sc.Metrics.observeRun(m.RunStatusFailure, time.Since(start), 0)
			return nil, err
		}
	}

	log.Printf("Loading price history for %s (time: %v)", req.Coin, time.Since(start))
	points, currentPrice, err := sc.loadPriceHistory(req.Coin, vsCurrency)
	if err != nil {
		log.Printf("Error loading price history for %s: %v", req.Coin, err)
		return nil, sc.markRunAsFailure(run, start, err)
	}

	log.Printf("Running forecast for %s over %d prices (time: %v)", req.Coin, len(points), time.Since(start))
	result, params, err := core.Forecast(sc.Context, points, core.EnsembleSettings{
		Simulations: req.Simulations,
		Steps:       req.Steps,
		Start:       req.Start,
		Seed:        req.Seed,
		Workers:     settings.Workers,
		BatchSize:   settings.BatchSize,
	}, currentPrice)
	if err != nil {
		log.Printf("Error running forecast for %s: %v", req.Coin, err)
		return nil, sc.markRunAsFailure(run, start, err)
	}

	if sc.Store != nil {
		if err := sc.Store.SaveSimulationResult(sc.Context, run.Id, params, currentPrice, result); err != nil {
			log.Printf("Error saving simulation result for %s: %v", req.Coin, err)
			sc.Metrics.observeRun(m.RunStatusFailure, time.Since(start), 0)
			return nil, err // if the result cannot be saved, marking the run as failed will most likely fail too
		}
	}

	sc.Metrics.observeRun(m.RunStatusSuccess, time.Since(start), req.Simulations)
	log.Printf("Forecast for %s completed (time: %v)", req.Coin, time.Since(start))

	return &m.ForecastResponse{
		RunId:        run.Id,
		Coin:         req.Coin,
		VsCurrency:   vsCurrency,
		Simulations:  req.Simulations,
		Steps:        req.Steps,
		Parameters:   params,
		CurrentPrice: core.RescaleFactor(currentPrice),
		Status:       m.RunStatusSuccess,
		Result:       result,
	}, nil
}

// GetForecast rebuilds a stored run, bands are only present for successful runs
func (sc *ServiceContext) GetForecast(id uuid.UUID) (*m.ForecastResponse, error) {
	if sc.Store == nil {
		return nil, ErrNoStore
	}

	run, err := sc.Store.GetSimulationRun(sc.Context, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("simulation run %s: %w", id, ErrNotFound)
	}

	res := &m.ForecastResponse{
		RunId:        run.Id,
		Coin:         run.Coin,
		VsCurrency:   run.VsCurrency,
		Simulations:  int(run.Simulations),
		Steps:        int(run.Steps),
		Parameters:   m.DistributionParameters{Mean: run.Mean.Float64, StdDev: run.StdDev.Float64},
		CurrentPrice: core.RescaleFactor(run.CurrentPrice),
		Status:       run.Status,
		Error:        run.ErrorMessage.String,
	}

	if run.Status == m.RunStatusSuccess {
		if res.Result, err = sc.Store.GetSimulationBands(sc.Context, id); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// loadPriceHistory prefers the database (synced first), otherwise asks the provider directly. Either way the
// history is reduced to daily closes. The current price is the newest valid price, invalid when there is no
// history at all. A failed sync is only tolerated when something is already stored.
func (sc *ServiceContext) loadPriceHistory(coin, vsCurrency string) ([]m.PricePoint, null.Float, error) {
	from, err := sc.Settings.MarketData.HistoryStartDate()
	if err != nil {
		return nil, null.Float{}, err
	}

	if sc.Store == nil {
		chart, err := sc.MarketData.GetMarketChartRange(sc.Context, coin, vsCurrency, from, sc.now())
		if err != nil {
			return nil, null.Float{}, err
		}
		return m.DailyCloses(chart.PricePoints()), chart.CurrentPrice(), nil
	}

	_, syncErr := sc.SyncCoinPriceHistory(coin)
	if syncErr != nil {
		if errors.Is(syncErr, context.Canceled) || errors.Is(syncErr, context.DeadlineExceeded) {
			return nil, null.Float{}, syncErr
		}
		// stale history still makes a forecast, the provider being down should not stop it
		log.Printf("Using stored history for %s, sync skipped: %v", coin, syncErr)
	}

	stored, err := sc.Store.GetPriceHistory(sc.Context, coin, vsCurrency, from)
	if err != nil {
		return nil, null.Float{}, err
	}
	if len(stored) == 0 && syncErr != nil {
		return nil, null.Float{}, fmt.Errorf("no stored history for %s and sync failed: %w", coin, syncErr)
	}
	points := m.DailyCloses(stored)

	var currentPrice null.Float
	if len(points) > 0 {
		currentPrice = null.FloatFrom(points[len(points)-1].Price)
	}
	return points, currentPrice, nil
}

// requestError wraps validation failures in ErrInvalidRequest, bad ensemble sizes are also configuration errors
func requestError(err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			if fe.Field() == "Simulations" || fe.Field() == "Steps" {
				return fmt.Errorf("%w: %w: %v", ErrInvalidRequest, core.ErrConfiguration, err)
			}
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

func (sc *ServiceContext) markRunAsFailure(run *m.SimulationRun, start time.Time, cause error) error {
	sc.Metrics.observeRun(m.RunStatusFailure, time.Since(start), 0)
	if sc.Store == nil {
		return cause
	}

	// the request context may already be gone, the failure still has to be written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sc.Context), 5*time.Second)
	defer cancel()

	if err := sc.Store.UpdateSimulationRunAsFailure(ctx, run.Id, cause.Error()); err != nil {
		log.Printf("Error marking simulation run %s as failure: %v", run.Id, err)
	}
	return cause
}
