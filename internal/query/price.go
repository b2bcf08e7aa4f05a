package query

import (
	"math"
	"strconv"
	"strings"
)

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

// ParsePrice interprets a price string as a decimal number the way the web
// UI's parseFloat did: leading whitespace is skipped and the longest leading
// numeric prefix ("12.50 EUR" -> 12.50) is taken. Returns ok=false when no
// digits lead the string. Prices are stored as entered and never validated,
// so this is the single place lenient parsing happens.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	end := 0
	if s[end] == '+' || s[end] == '-' {
		end++
	}
	sawDigit, sawDot := false, false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			sawDigit = true
		} else if c == '.' && !sawDot {
			sawDot = true
		} else {
			break
		}
		end++
	}
	if !sawDigit {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
