package utils

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ls1intum/hades/hadesLogForwarder/fluentd"
	slogmulti "github.com/samber/slog-multi"
)

type LogConfig struct {
	Debug   bool   `env:"DEBUG" envDefault:"false"`
	Format  string `env:"LOG_FORMAT" envDefault:"text"`
	Fluentd fluentd.FluentdOptions
}

// SetupLogging installs the default structured logger writing to w and, when
// configured, to Fluentd. The returned function releases the Fluentd client.
func SetupLogging(cfg LogConfig, w io.Writer) (func() error, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	closeFn := func() error { return nil }
	if cfg.Fluentd.Addr != "" {
		fluentHandler, client, err := fluentd.NewHandler(cfg.Fluentd, level)
		if err != nil {
			return nil, fmt.Errorf("setting up fluentd logging: %w", err)
		}
		handler = slogmulti.Fanout(handler, fluentHandler)
		closeFn = client.Close
	}

	slog.SetDefault(slog.New(handler))
	if cfg.Debug {
		slog.Warn("DEBUG MODE ENABLED")
	}
	return closeFn, nil
}

// ComponentLogger creates a logger with component attribute
func ComponentLogger(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}
