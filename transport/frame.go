package transport

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
)

// Frame is a classical CAN 2.0 frame. Standard (11-bit) and extended (29-bit)
// identifiers, data and remote frames, payload length 0..8. CAN FD is out of
// scope.
type Frame struct {
	ID       uint32
	Extended bool
	RTR      bool
	Len      uint8
	Data     [8]byte
}

const (
	maxStandardID = 0x7FF
	maxExtendedID = 0x1FFFFFFF

	frameWireSize = 16

	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
)

var (
	ErrInvalidID  = stderrors.New("transport: invalid frame identifier")
	ErrInvalidLen = stderrors.New("transport: invalid frame length")
)

// NewFrame builds a data frame from an identifier and payload. Identifiers
// above the standard range become extended frames.
func NewFrame(id uint32, data []byte) (Frame, error) {
	f := Frame{ID: id, Extended: id > maxStandardID}
	if len(data) > 8 {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate returns an error if the frame violates classical CAN limits.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	max := uint32(maxStandardID)
	if f.Extended {
		max = maxExtendedID
	}
	if f.ID > max {
		return ErrInvalidID
	}
	return nil
}

// Payload returns a copy of the frame's live data bytes.
func (f Frame) Payload() []byte {
	out := make([]byte, f.Len)
	copy(out, f.Data[:f.Len])
	return out
}

// String renders the frame in candump-style notation for logs.
func (f Frame) String() string {
	if f.RTR {
		return fmt.Sprintf("%03X#R%d", f.ID, f.Len)
	}
	return fmt.Sprintf("%03X#%X", f.ID, f.Data[:f.Len])
}

// MarshalBinary encodes the frame into the Linux SocketCAN can_frame layout
// (16 bytes, little-endian):
//
//	0..3  can_id with EFF/RTR flags
//	4     can_dlc
//	5..7  padding
//	8..15 data
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	buf := make([]byte, frameWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the SocketCAN can_frame layout.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < frameWireSize {
		return fmt.Errorf("transport: need %d bytes, got %d", frameWireSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEffFlag != 0
	f.RTR = id&canRtrFlag != 0
	if f.Extended {
		f.ID = id & maxExtendedID
	} else {
		f.ID = id & maxStandardID
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}
