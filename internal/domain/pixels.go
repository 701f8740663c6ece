package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParsePixels converts a CSS pixel length ("350px", "350.5px" or a bare "350")
// into whole pixels. Fractions are truncated.
func ParsePixels(s string) (int, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "px")
	if v == "" {
		return 0, fmt.Errorf("parse pixels %q: %w", s, ErrInvalidPixels)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse pixels %q: %w", s, ErrInvalidPixels)
	}
	return int(f), nil
}

// FormatPixels renders n as a CSS pixel length.
func FormatPixels(n int) string {
	return strconv.Itoa(n) + "px"
}
