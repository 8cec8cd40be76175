package core

import (
	"context"

	"github.com/guregu/null/v6"

	m "mc.forecast/models"
)

// Forecast is the whole engine in one call: prices -> returns -> distribution -> ensemble -> bands.
// rescale is usually the latest price, leave it invalid to stay in growth space.
func Forecast(ctx context.Context, points []m.PricePoint, settings EnsembleSettings, rescale null.Float) (*m.SimulationResult, m.DistributionParameters, error) {
	returns := DailyPriceChanges(points)

	params, err := CalibrateDistribution(returns)
	if err != nil {
		return nil, params, err
	}

	walks, err := RunEnsemble(ctx, params, settings)
	if err != nil {
		return nil, params, err
	}

	res, err := CalculateSimulationPercentiles(ctx, walks, settings.Steps, rescale, settings.withDefaults().Workers)
	if err != nil {
		return nil, params, err
	}

	return res, params, nil
}
