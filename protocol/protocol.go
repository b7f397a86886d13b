// Package protocol maps CAN frame identifiers to vehicle message codecs and
// accumulates decoded state.
//
// A vehicle defines a concrete Detail type plus one message per frame it
// speaks: RecvMessage for reports coming off the bus, SendMessage for
// commands going onto it. The Table binds them together and owns the
// accumulated received view; the pending to-send view is derived on demand
// from the send slots' payload bytes.
package protocol

import (
	stderrors "errors"
	"time"
)

// Detail is a vehicle-specific snapshot of decoded protocol state. Concrete
// types are plain structs; CloneDetail returns an independent deep copy so
// readers never alias the accumulating instance.
type Detail interface {
	CloneDetail() Detail
}

// PayloadDecoder decodes frame payload bytes into a Detail. RecvMessage
// implementations decode live reports; SendMessage implementations that also
// decode contribute to the derived to-send view.
type PayloadDecoder interface {
	Decode(payload []byte, into Detail) error
}

// RecvMessage is the codec for one report frame.
type RecvMessage interface {
	PayloadDecoder

	// ID is the frame identifier the codec handles.
	ID() uint32
}

// SendMessage owns the pending payload of one command frame. Pending bytes
// only change inside Refresh (or RefreshHeartbeat), which re-encodes them
// from the slot's typed fields. Implementations guard their payload with an
// internal mutex so the transmit loop reads tear-free while commands mutate
// the typed fields.
type SendMessage interface {
	// ID is the frame identifier the slot transmits.
	ID() uint32

	// Period is the transmit interval. Zero marks an event-driven slot,
	// transmitted only when a command update refreshes it.
	Period() time.Duration

	// Refresh re-encodes the pending payload from the typed fields.
	Refresh()

	// Payload returns a copy of the pending payload bytes.
	Payload() []byte
}

// HeartbeatMessage marks send slots advanced by heartbeat refresh: alive
// counters, watchdog tokens. Only these slots move when the caller refreshes
// the heartbeat; everything else is untouched.
type HeartbeatMessage interface {
	SendMessage
	RefreshHeartbeat()
}

var (
	ErrUnknownMessage   = stderrors.New("protocol: unknown message id")
	ErrDuplicateMessage = stderrors.New("protocol: duplicate message id")
	ErrNilMessage       = stderrors.New("protocol: nil message")
)
