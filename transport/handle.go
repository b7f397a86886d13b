package transport

import (
	"context"
	stderrors "errors"
)

// Handle is an open connection to a CAN bus. Implementations are safe for
// concurrent use: one goroutine may Send while another blocks in Receive.
//
// A Handle starts idle. Send and Receive return ErrNotStarted before Start
// and ErrClosed after Stop. Stop is idempotent.
type Handle interface {
	// Name identifies the underlying bus, e.g. "socketcan:can0".
	Name() string

	// Start opens the bus connection.
	Start() error

	// Stop closes the bus connection and releases resources.
	Stop() error

	// Send transmits a single frame. It may block until the frame is
	// queued by the underlying driver.
	Send(frame Frame) error

	// Receive blocks for the next frame. Context cancellation aborts the
	// wait and returns the context error.
	Receive(ctx context.Context) (Frame, error)
}

var (
	ErrNotStarted     = stderrors.New("transport: not started")
	ErrAlreadyStarted = stderrors.New("transport: already started")
	ErrClosed         = stderrors.New("transport: closed")
)

// Config selects and parameterizes a transport implementation.
type Config struct {
	// Type names a registered constructor, e.g. "socketcan" or "virtual".
	Type string `json:"type" yaml:"type"`
	// Channel is the bus channel: a network interface name for socketcan,
	// a hub name for virtual.
	Channel string `json:"channel" yaml:"channel"`
	// BitrateKbps is informational for drivers that cannot set it
	// themselves; socketcan expects the interface pre-configured.
	BitrateKbps int `json:"bitrate_kbps" yaml:"bitrate_kbps"`
}

// Validate checks the config names a type and channel.
func (c Config) Validate() error {
	if c.Type == "" {
		return stderrors.New("transport: config missing type")
	}
	if c.Channel == "" {
		return stderrors.New("transport: config missing channel")
	}
	return nil
}
