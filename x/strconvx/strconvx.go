// Package strconvx holds number formatting shared by the display and the
// remote record.
package strconvx

import (
	"math"
	"strconv"
	"strings"
)

// FormatDecimal renders f in its shortest round-trip decimal form with at
// least one fractional digit: 0.045 -> "0.045", 0 -> "0.0", 2 -> "2.0".
// Very large or tiny magnitudes keep the exponent form.
func FormatDecimal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
