// Package util provides small helpers shared across the fusion pipeline.
package util

import "strings"

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeKey canonicalizes a CSV header cell for alias matching:
// lowercase, surrounding whitespace and BOM stripped, internal spaces,
// dashes and underscores removed. "Gimbal Pitch(deg)" and
// "gimbal_pitch(deg)" normalize to the same key.
func NormalizeKey(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}
