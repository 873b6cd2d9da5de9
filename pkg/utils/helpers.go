package utils

import (
	"fmt"
	"strconv"
)

// ParseBoundedInt parses an optional integer query value, applying a default when empty
// and clamping the result into [min, max].
func ParseBoundedInt(value string, defaultValue, min, max int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", value, err)
	}
	if n < min {
		return min, nil
	}
	if max > 0 && n > max {
		return max, nil
	}
	return n, nil
}
