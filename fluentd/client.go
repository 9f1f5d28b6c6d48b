package fluentd

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/fluent/fluent-logger-golang/fluent"
	slogfluentd "github.com/samber/slog-fluentd/v2"
)

type FluentdOptions struct {
	Addr     string `env:"FLUENTD_ADDR"`
	MaxRetry uint   `env:"FLUENTD_MAX_RETRY" envDefault:"3"`
	Tag      string `env:"FLUENTD_TAG" envDefault:"hades.forwarder"`
}

// NewClient creates an asynchronous Fluentd client for opt.Addr ("host:port").
func NewClient(opt FluentdOptions) (*fluent.Fluent, error) {
	host, portStr, err := net.SplitHostPort(opt.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid fluentd address %q: %w", opt.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid fluentd port %q: %w", portStr, err)
	}

	// async so an unreachable fluentd never blocks forwarding
	return fluent.New(fluent.Config{
		FluentHost:    host,
		FluentPort:    port,
		FluentNetwork: "tcp",
		MaxRetry:      int(opt.MaxRetry),
		Async:         true,
	})
}

// NewHandler returns a slog handler shipping records to Fluentd together with
// the underlying client, which the caller must close.
func NewHandler(opt FluentdOptions, level slog.Leveler) (slog.Handler, *fluent.Fluent, error) {
	client, err := NewClient(opt)
	if err != nil {
		return nil, nil, err
	}

	handler := slogfluentd.Option{
		Level:  level,
		Client: client,
		Tag:    opt.Tag,
	}.NewFluentdHandler()

	return handler, client, nil
}
