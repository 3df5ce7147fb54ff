// Package mathx holds the small numeric helpers shared by the sensor and
// session code.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]; reversed bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return min(max(v, lo), hi)
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
