package core

import (
	m "mc.forecast/models"
)

// DailyPriceChanges converts consecutive prices into growth ratios, price[i+1]/price[i].
// Prices are assumed positive, a zero price produces an infinite or NaN ratio that the later stages reject.
func DailyPriceChanges(points []m.PricePoint) m.ReturnsSeries {
	if len(points) <= 1 {
		return m.ReturnsSeries{}
	}

	changes := make(m.ReturnsSeries, len(points)-1)
	for i := 1; i < len(points); i++ {
		changes[i-1] = points[i].Price / points[i-1].Price
	}

	return changes
}
