package framelog

import (
	"time"
)

// Event is one frame observation on the bus.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the frame was observed (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Direction indicates frame flow relative to this node.
	Direction Direction `cbor:"2,keyasint"`

	// FrameID is the CAN identifier.
	FrameID uint32 `cbor:"3,keyasint"`

	// Data is the frame payload.
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Error records a decode failure for the frame, if any.
	Error string `cbor:"5,keyasint,omitempty"`
}

// Direction indicates frame flow relative to this node.
type Direction uint8

const (
	// DirectionRx indicates a frame received from the bus.
	DirectionRx Direction = 0
	// DirectionTx indicates a frame transmitted onto the bus.
	DirectionTx Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionRx:
		return "RX"
	case DirectionTx:
		return "TX"
	default:
		return "UNKNOWN"
	}
}
