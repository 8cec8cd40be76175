package core

import (
	"context"
	"math"
	"slices"

	"github.com/guregu/null/v6"
	"golang.org/x/sync/errgroup"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

const (
	FifthPercentile       = 5.0
	FiftiethPercentile    = 50.0
	NinetyFifthPercentile = 95.0
)

// Percentile is a nearest rank estimator over an ascending, non-empty slice.
// rank = round(p/100 * (n-1)) with math.Round (half away from zero), there is no interpolation.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	rank := int(math.Round(p / 100 * float64(n-1)))
	return sorted[ex.Clamp(rank, 0, n-1)]
}

// RescaleFactor is the current price when one is known, otherwise results stay in growth space
func RescaleFactor(price null.Float) float64 {
	return valueOr(price, 1.0)
}

// CalculateSimulationPercentiles collects the cross walk values for every step, sorts them once
// and reads the 5th, 50th and 95th percentiles, multiplied by the rescale factor.
// Steps are independent and run concurrently, each writes only its own index of the bands.
func CalculateSimulationPercentiles(ctx context.Context, walks []m.Walk, steps int, rescale null.Float, workers int) (*m.SimulationResult, error) {
	if len(walks) == 0 {
		return nil, configurationError("cannot aggregate an empty ensemble")
	}
	if steps < 1 {
		return nil, configurationError("steps must be at least 1, got %d", steps)
	}
	for i, w := range walks {
		if len(w) != steps {
			return nil, configurationError("walk %d has %d steps, expected %d", i, len(w), steps)
		}
	}

	price := RescaleFactor(rescale)
	if !ex.IsFinite(price) || price <= 0 {
		return nil, configurationError("rescale price must be a positive number, got %v", price)
	}

	if workers <= 0 {
		workers = Workers
	}

	res := &m.SimulationResult{
		Fifth:       make(m.PercentileBand, steps),
		Fiftieth:    make(m.PercentileBand, steps),
		NinetyFifth: make(m.PercentileBand, steps),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for t := range steps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			values, err := collectStep(walks, t)
			if err != nil {
				return err
			}

			slices.Sort(values)

			res.Fifth[t] = Percentile(values, FifthPercentile) * price
			res.Fiftieth[t] = Percentile(values, FiftiethPercentile) * price
			res.NinetyFifth[t] = Percentile(values, NinetyFifthPercentile) * price
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}

// collectStep copies the value at step t out of every walk, NaN and infinities have no place in a total order
func collectStep(walks []m.Walk, t int) ([]float64, error) {
	values := make([]float64, len(walks))
	for i, w := range walks {
		if !ex.IsFinite(w[t]) {
			return nil, &NumericError{Stage: "percentile aggregation", Step: t, Trial: i, Value: w[t]}
		}
		values[i] = w[t]
	}
	return values, nil
}
