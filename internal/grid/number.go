package grid

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NumberPattern is the accepted textual form of a number. Storage dialects
// install the same rule as the grid_num SQL function.
const NumberPattern = `^[-+]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?$`

var numberRe = regexp.MustCompile(NumberPattern)

// ParseNumber returns the finite number encoded in s after trimming
// whitespace. ok is false for anything else, including overflow.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numberRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// NumberOf converts a JSON-decoded value to a finite number.
func NumberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsInf(x, 0) && !math.IsNaN(x)
	case float32:
		return NumberOf(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		return ParseNumber(x)
	case []byte:
		return ParseNumber(string(x))
	case interface{ Float64() (float64, error) }:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return NumberOf(f)
	default:
		return 0, false
	}
}

// formatNumber renders f the way a JSON encoder would, without exponent for
// ordinary magnitudes.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
