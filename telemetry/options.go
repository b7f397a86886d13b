package telemetry

import (
	"log/slog"
	"time"

	"github.com/c360/canlink/metric"
)

// Option is a functional option for configuring the Client
type Option func(*Client) error

// WithName sets the client name reported to the NATS server
func WithName(name string) Option {
	return func(c *Client) error {
		if name != "" {
			c.name = name
		}
		return nil
	}
}

// WithLogger sets a custom logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithCredentials sets username and password for authentication
func WithCredentials(username, password string) Option {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken sets a token for authentication
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithConnectTimeout sets the connection timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.connectTimeout = d
		}
		return nil
	}
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.reconnectWait = d
		}
		return nil
	}
}

// WithMaxReconnects sets the maximum number of reconnection attempts
// (-1 for infinite)
func WithMaxReconnects(n int) Option {
	return func(c *Client) error {
		c.maxReconnects = n
		return nil
	}
}

// WithDrainTimeout sets the timeout for draining on Close
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.drainTimeout = d
		}
		return nil
	}
}

// WithMetrics wires connection and publish metrics into the client and the
// writers created from it.
func WithMetrics(pipeline *metric.Pipeline) Option {
	return func(c *Client) error {
		c.metrics = pipeline
		return nil
	}
}
