package models

// ReturnsSeries holds the growth ratios of consecutive closing prices, price[t]/price[t-1]
type ReturnsSeries []float64

// DistributionParameters describes the normal distribution growth rates are drawn from
type DistributionParameters struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Walk is one simulated path, element 0 is the starting value
type Walk []float64

// PercentileBand is a single percentile across the ensemble, one value per step
type PercentileBand []float64

// SimulationResult is the only thing the engine hands back to callers
type SimulationResult struct {
	Fifth       PercentileBand `json:"fifth"`
	Fiftieth    PercentileBand `json:"fiftieth"`
	NinetyFifth PercentileBand `json:"ninety_fifth"`
}

// Steps returns the shared band length
func (sr *SimulationResult) Steps() int {
	return len(sr.Fiftieth)
}
