package util

import (
	"math"
	"strconv"
)

// ParseID parses a positive path id.
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percent returns part/total*100 rounded to two decimals, 0 when total is 0.
func Percent(part, total uint) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) * 100 / float64(total))
}
