package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidCost = errors.New("invalid cost")

// ParseCost converts user input such as "12.34" or "12,34" to a cost rounded
// to the cent. Zero, negative and non-numeric inputs are rejected.
func ParseCost(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidCost
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidCost
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return 0, ErrInvalidCost
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, ErrInvalidCost
	}
	cents := toCents(v)
	if cents <= 0 {
		return 0, ErrInvalidCost
	}
	return float64(cents) / 100, nil
}

// FormatCost renders a cost with two decimals.
func FormatCost(v float64) string {
	return strconv.FormatFloat(float64(toCents(v))/100, 'f', 2, 64)
}

// toCents rounds half away from zero. Totals are summed in cents to keep
// float drift out of displayed amounts.
func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
