package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadConfig fills cfg from the environment, after loading an optional .env
// file from the working directory.
func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found")
		} else {
			slog.Warn("Error loading .env file", "error", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment variables: %w", err)
	}

	slog.Debug("Config loaded")
	return nil
}

// ParseMemoryLimit converts a limit like "512m" or "4G" into bytes.
func ParseMemoryLimit(limit string) (int64, error) {
	if len(limit) < 2 {
		return 0, fmt.Errorf("invalid memory limit format: %q", limit)
	}

	unit := limit[len(limit)-1:]
	number := limit[:len(limit)-1]
	value, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q: %w", number, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("memory limit cannot be negative: %s", limit)
	}

	switch strings.ToUpper(unit) {
	case "G":
		return value * 1024 * 1024 * 1024, nil
	case "M":
		return value * 1024 * 1024, nil
	default:
		return 0, fmt.Errorf("unsupported memory unit: %s", unit)
	}
}
