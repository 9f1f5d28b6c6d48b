package utils

import (
	"cmp"
	"log/slog"
)

func FindLimit[T cmp.Ordered](x, y T) T {
	var zero T
	if x == zero {
		return y
	}
	if y == zero {
		return x
	}
	return min(x, y)
}

// Gets two memory limits and returns the smaller one as number of bytes
func FindMemoryLimit(x, y string) int64 {
	return FindLimit(parseOrZero(x), parseOrZero(y))
}

func parseOrZero(limit string) int64 {
	if limit == "" {
		return 0
	}
	bytes, err := ParseMemoryLimit(limit)
	if err != nil {
		slog.With("error", err).Error("Failed to parse RAM limit", "limit", limit)
		return 0
	}
	return bytes
}
