package extract

import (
	"math"
	"strconv"
	"strings"
)

var numberCleaner = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"\t", "",
	",", ".",
)

// ParseNumber converts a locale-formatted number such as "1 234,5" to a float.
// It reports false for empty input, unparseable text, NaN and infinities.
func ParseNumber(s string) (float64, bool) {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
