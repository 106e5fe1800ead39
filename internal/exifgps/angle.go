package exifgps

import (
	"fmt"
	"strconv"
	"strings"
)

// angleNormalizer collapses every documented DMS encoding into
// space-separated numeric tokens: degree/minute/second marks (ASCII and
// Unicode), bracketed fraction arrays, rational tuples and colon-delimited
// triples all reduce to the same token stream.
var angleNormalizer = strings.NewReplacer(
	"°", " ", "º", " ",
	"′", " ", "’", " ", "'", " ",
	"″", " ", "”", " ", `"`, " ",
	":", " ",
	"[", " ", "]", " ",
	"(", " ", ")", " ",
	",", " ", ";", " ",
	"deg", " ", "min", " ", "sec", " ",
)

// ParseAngle converts any supported textual angle encoding into decimal
// degrees. Supported forms, all of which parse a fixed reference angle to
// the same value within 1e-6:
//
//	47.850055
//	47° 51' 0.198"         (ASCII or Unicode marks)
//	47:51:0.198
//	47 51 0.198
//	[47, 51, 99/500]
//	(47,1) (51,1) (99,500)
func ParseAngle(s string) (float64, error) {
	normalized := angleNormalizer.Replace(strings.TrimSpace(s))
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty angle %q", s)
	}

	hadFraction := false
	values := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, isFrac, err := parseToken(tok)
		if err != nil {
			return 0, fmt.Errorf("bad angle %q: %w", s, err)
		}
		hadFraction = hadFraction || isFrac
		values = append(values, v)
	}

	// Six bare numbers are three (numerator, denominator) pairs.
	if len(values) == 6 && !hadFraction {
		pairs := make([]float64, 3)
		for i := 0; i < 3; i++ {
			den := values[i*2+1]
			if den == 0 {
				return 0, fmt.Errorf("bad angle %q: zero denominator", s)
			}
			pairs[i] = values[i*2] / den
		}
		values = pairs
	}

	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return dmsToDecimal(values[0], values[1], 0), nil
	case 3:
		return dmsToDecimal(values[0], values[1], values[2]), nil
	default:
		return 0, fmt.Errorf("bad angle %q: expected 1-3 components, got %d", s, len(values))
	}
}

// parseToken parses a single numeric token, resolving "num/den" fractions.
func parseToken(tok string) (v float64, isFraction bool, err error) {
	if num, den, ok := strings.Cut(tok, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, true, fmt.Errorf("fraction numerator %q: %w", num, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, true, fmt.Errorf("fraction denominator %q: %w", den, err)
		}
		if d == 0 {
			return 0, true, fmt.Errorf("zero denominator in %q", tok)
		}
		return n / d, true, nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false, fmt.Errorf("component %q: %w", tok, err)
	}
	return f, false, nil
}

// dmsToDecimal combines degree/minute/second components, carrying the sign
// of the degree component onto the whole angle.
func dmsToDecimal(d, m, s float64) float64 {
	sign := 1.0
	if d < 0 {
		sign = -1
		d = -d
	}
	return sign * (d + m/60 + s/3600)
}

// ApplyRef applies an N/S/E/W hemisphere reference to a parsed angle
// magnitude: S and W negate. An empty reference leaves the value as-is.
func ApplyRef(v float64, ref string) float64 {
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		if v > 0 {
			return -v
		}
	}
	return v
}
