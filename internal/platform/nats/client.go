package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/GDG-UAM/website-sub002/internal/common/logger"
)

const (
	reconnectDelay       = 2 * time.Second
	maxReconnectAttempts = 10
)

// Client wraps a core NATS connection. Count fan-out is fire and forget,
// so JetStream is not used.
type Client struct {
	*nats.Conn
}

// Connect dials servers (comma separated URLs) and logs connection state changes.
func Connect(servers, name string) (*Client, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(maxReconnectAttempts),
		nats.ReconnectWait(reconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("NATS disconnected with error")
			} else {
				logger.Warn().Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := logger.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("NATS async error")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info().Str("servers", servers).Msg("Connected to NATS")
	return &Client{Conn: nc}, nil
}

func (c *Client) HealthCheck() error {
	if !c.IsConnected() {
		return fmt.Errorf("nats connection status %s", c.Status())
	}
	return nil
}
