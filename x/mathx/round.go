package mathx

import "math"

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// MaxOf returns the largest element of xs and false when xs is empty.
func MaxOf(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = Max(m, x)
	}
	return m, true
}
