package nats

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectionConfig holds NATS server connection configuration. The mirror is
// disabled when URL is empty.
type ConnectionConfig struct {
	URL      string `env:"NATS_URL"`
	Username string `env:"NATS_USERNAME"`
	Password string `env:"NATS_PASSWORD"`
	TLS      bool   `env:"NATS_TLS_ENABLED" envDefault:"false"`
}

func (c ConnectionConfig) Enabled() bool {
	return c.URL != ""
}

const (
	natsName          = "HadesLogForwarder"
	natsTimeout       = 10 * time.Second
	natsReconnectWait = 2 * time.Second
	natsMaxReconnects = 5
)

func connectionOptions(config ConnectionConfig) []nats.Option {
	opts := []nats.Option{
		nats.Name(natsName),
		nats.Timeout(natsTimeout),
		nats.ReconnectWait(natsReconnectWait),
		nats.MaxReconnects(natsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", nc.ConnectedUrlRedacted())
		}),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts, nats.UserInfo(config.Username, config.Password))
	}

	if config.TLS {
		opts = append(opts, nats.Secure(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	return opts
}

// SetupNatsConnection creates a connection to the NATS server with the provided configuration.
func SetupNatsConnection(config ConnectionConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(config.URL, connectionOptions(config)...)
	if err != nil {
		slog.Error("Failed to connect to NATS", "error", err)
		return nil, err
	}

	slog.Info("Connected to NATS server", "url", config.URL)
	return nc, nil
}
