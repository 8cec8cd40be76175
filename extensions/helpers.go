package extensions

import (
	"math"
	"time"
)

type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// FilterMultiplePtr return all pointers that satisfy the predicate
func FilterMultiplePtr[T any](elements []*T, predicate func(*T) bool) (results []*T) {
	for _, element := range elements {
		if predicate(element) {
			results = append(results, element)
		}
	}
	return
}

// AreAllEqual checks if a slice is complised of the same element by value
func AreAllEqual[T comparable](values []T) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}

// IsFinite is false for NaN and both infinities
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp pins v into [lo, hi]
func Clamp[T Number](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// CeilDiv divides and rounds up, used for batch counts
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// FmtShort formats a time in a date only string
func FmtShort(t time.Time) string {
	return t.Format(time.DateOnly)
}
