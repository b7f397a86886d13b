package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned for operations that need a live connection.
var ErrNotConnected = stderrors.New("not connected to NATS")

// Client manages the NATS connection used for telemetry publishing and
// command subscriptions. Telemetry is fire-and-forget: a lost connection
// drops envelopes until nats.go reconnects on its own.
type Client struct {
	urls    string
	status  atomic.Value // stores ConnectionStatus
	logger  *slog.Logger
	metrics *metric.Pipeline

	conn *nats.Conn
	subs []*nats.Subscription

	// Connection options
	name           string
	username       string
	password       string
	token          string
	connectTimeout time.Duration
	reconnectWait  time.Duration
	maxReconnects  int
	drainTimeout   time.Duration

	reconnects atomic.Int32

	mu      sync.RWMutex
	closeMu sync.Mutex  // Ensures Close() runs only once
	closed  atomic.Bool // Track if client is closed
}

// NewClient creates a new telemetry client for the given server URLs
func NewClient(urls []string, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.WrapCreation(
			fmt.Errorf("no server URLs"),
			"Client", "NewClient", "validate URLs")
	}

	c := &Client{
		urls:   strings.Join(urls, ","),
		logger: slog.Default(),
		// Sensible defaults
		name:           "canlink",
		connectTimeout: 5 * time.Second,
		reconnectWait:  2 * time.Second,
		maxReconnects:  -1, // infinite by default
		drainTimeout:   10 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapCreation(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)

	return c, nil
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// IsConnected returns true if the connection is up
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// Reconnects returns the number of reconnections since Connect
func (c *Client) Reconnects() int32 {
	return c.reconnects.Load()
}

// Conn returns the underlying NATS connection, nil before Connect
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// buildConnectionOptions builds NATS options from client configuration
func (c *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.name),
		nats.Timeout(c.connectTimeout),
		nats.ReconnectWait(c.reconnectWait),
		nats.MaxReconnects(c.maxReconnects),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	return opts
}

// Connect establishes the connection to the NATS server(s)
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Info("connecting to NATS", "urls", c.urls)

	opts := c.buildConnectionOptions()

	// nats.Connect has its own timeout; the goroutine lets the caller's
	// context cut the wait short as well.
	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.urls, opts...)
		if err != nil {
			connectDone <- err
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			c.setStatus(StatusDisconnected)
			return errors.WrapInit(err, "Client", "Connect", "establish connection")
		}
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		return errors.WrapInit(ctx.Err(), "Client", "Connect", "establish connection")
	}

	c.setStatus(StatusConnected)
	c.metrics.RecordNATSStatus(true)
	c.logger.Info("connected to NATS", "urls", c.urls)

	return nil
}

// Close drains and closes the NATS connection. Close is idempotent.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, errors.WrapStop(err, "Client", "Close", "unsubscribe"))
			c.logger.Error("failed to unsubscribe", "error", err)
		}
	}
	c.subs = nil

	if c.conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func(conn *nats.Conn) {
			drainDone <- conn.Drain()
		}(c.conn)

		select {
		case err := <-drainDone:
			if err != nil {
				errs = append(errs, errors.WrapStop(err, "Client", "Close", "drain connection"))
				c.logger.Error("drain error", "error", err)
			}
		case <-time.After(drainTimeout):
			errs = append(errs, errors.WrapStop(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain connection"))
			c.logger.Error("drain timeout, force closing", "timeout", drainTimeout)
		case <-ctx.Done():
			errs = append(errs, errors.WrapStop(ctx.Err(), "Client", "Close", "drain connection"))
		}

		c.conn.Close()
		c.conn = nil
	}

	// Clear credentials from memory
	c.username = ""
	c.password = ""
	c.token = ""

	c.setStatus(StatusDisconnected)
	c.metrics.RecordNATSStatus(false)

	return stderrors.Join(errs...)
}

// Publish publishes raw bytes to a subject. Publishing is asynchronous; a
// nil return means the message was queued, not delivered.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	return conn.Publish(subject, data)
}

// Subscribe subscribes to a subject. Subscriptions are tracked and
// unsubscribed by Close.
func (c *Client) Subscribe(subject string, handler func(data []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return errors.Wrap(err, "Client", "Subscribe", "subscribe "+subject)
	}

	c.subs = append(c.subs, sub)
	return nil
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.metrics.RecordNATSStatus(false)
	if err != nil {
		c.logger.Warn("NATS disconnected", "error", err)
	} else {
		c.logger.Warn("NATS disconnected")
	}
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.reconnects.Add(1)
	c.metrics.RecordNATSStatus(true)
	c.metrics.RecordNATSReconnect()
	c.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	c.metrics.RecordNATSStatus(false)
	if !c.closed.Load() {
		c.logger.Warn("NATS connection closed")
	}
}
