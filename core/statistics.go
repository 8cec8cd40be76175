package core

import (
	"fmt"
	"log"
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

// Fallback parameters used when there is no history to calibrate from.
// The standard deviation of 1.0 is a policy (unit volatility), not something derived from data,
// changing it changes every simulation run on empty history.
const (
	FallbackMean   = 0.0
	FallbackStdDev = 1.0
)

// Mean is the arithmetic mean of the series, invalid (not zero) when the series is empty
func Mean(series m.ReturnsSeries) null.Float {
	if len(series) == 0 {
		return null.Float{}
	}
	return null.FloatFrom(stat.Mean(series, nil))
}

// StandardDeviation is the population standard deviation (divides by N), invalid when the series is empty.
// It goes through Mean so both statistics see the exact same mean.
func StandardDeviation(series m.ReturnsSeries) null.Float {
	mean := Mean(series)
	if !mean.Valid {
		return null.Float{}
	}

	var sumSquares float64
	for _, v := range series {
		diff := mean.Float64 - v
		sumSquares += diff * diff
	}

	return null.FloatFrom(math.Sqrt(sumSquares / float64(len(series))))
}

// CalibrateDistribution turns a returns series into distribution parameters.
// Undefined statistics fall back to FallbackMean and FallbackStdDev, anything else that is unusable is an error.
func CalibrateDistribution(returns m.ReturnsSeries) (m.DistributionParameters, error) {
	mean := Mean(returns)
	stdDev := StandardDeviation(returns)

	if !mean.Valid || !stdDev.Valid {
		log.Printf("%v (%d returns), falling back to mean %v and std dev %v", ErrData, len(returns), FallbackMean, FallbackStdDev)
	}

	params := m.DistributionParameters{
		Mean:   valueOr(mean, FallbackMean),
		StdDev: valueOr(stdDev, FallbackStdDev),
	}

	if err := ValidateDistribution(params); err != nil {
		if len(returns) > 1 && ex.AreAllEqual([]float64(returns)) {
			return params, fmt.Errorf("%w, all %d returns are %v (flat price history)", err, len(returns), returns[0])
		}
		return params, err
	}

	return params, nil
}

// ValidateDistribution rejects parameters a normal distribution cannot be built from
func ValidateDistribution(params m.DistributionParameters) error {
	if !ex.IsFinite(params.Mean) {
		return &NumericError{Stage: "distribution mean", Step: -1, Trial: -1, Value: params.Mean}
	}
	if !ex.IsFinite(params.StdDev) {
		return &NumericError{Stage: "distribution std dev", Step: -1, Trial: -1, Value: params.StdDev}
	}
	if params.StdDev <= 0 {
		return fmt.Errorf("%w: std dev must be positive, got %v", ErrDistribution, params.StdDev)
	}
	return nil
}

func valueOr(v null.Float, fallback float64) float64 {
	if v.Valid {
		return v.Float64
	}
	return fallback
}
