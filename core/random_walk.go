package core

import (
	"math/rand/v2"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat/distuv"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

// NewTrialSource gives every trial its own generator. With a seed, trial i always gets PCG(seed, i)
// no matter which worker runs it; without one each trial is seeded from the runtime's global source.
func NewTrialSource(seed null.Int, trial int) rand.Source {
	if seed.Valid {
		return rand.NewPCG(uint64(seed.Int64), uint64(trial))
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// NewNormalDistribution fails fast on a non-positive or non-finite std dev instead of emitting flat walks
func NewNormalDistribution(params m.DistributionParameters, src rand.Source) (distuv.Normal, error) {
	if err := ValidateDistribution(params); err != nil {
		return distuv.Normal{}, err
	}
	return distuv.Normal{Mu: params.Mean, Sigma: params.StdDev, Src: src}, nil
}

// GenerateWalk builds one path of length steps. walk[0] is start and every later
// step multiplies the previous value by an independent growth rate drawn from params.
// src is owned by this call, never share it with another goroutine.
func GenerateWalk(params m.DistributionParameters, steps int, start float64, src rand.Source) (m.Walk, error) {
	if err := validateWalkShape(steps, start); err != nil {
		return nil, err
	}

	dist, err := NewNormalDistribution(params, src)
	if err != nil {
		return nil, err
	}

	return generateWalk(dist, steps, start), nil
}

func generateWalk(dist distuv.Normal, steps int, start float64) m.Walk {
	walk := make(m.Walk, steps)
	walk[0] = start
	for i := 1; i < steps; i++ {
		walk[i] = walk[i-1] * dist.Rand()
	}
	return walk
}

func validateWalkShape(steps int, start float64) error {
	if steps < 1 {
		return configurationError("steps must be at least 1, got %d", steps)
	}
	if !ex.IsFinite(start) || start <= 0 {
		return configurationError("start value must be a positive number, got %v", start)
	}
	return nil
}
