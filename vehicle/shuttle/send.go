package shuttle

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/vehicle"
)

// Command slot payloads are always full 8-byte frames.
const commandFrameLen = 8

// Every command slot also decodes its own pending bytes so the table can
// derive the to-send view.
var (
	_ protocol.HeartbeatMessage = (*AliveHeartbeat)(nil)

	_ protocol.PayloadDecoder = (*DriveCommand)(nil)
	_ protocol.PayloadDecoder = (*BrakeCommand)(nil)
	_ protocol.PayloadDecoder = (*SteerCommand)(nil)
	_ protocol.PayloadDecoder = (*BodyCommand)(nil)
	_ protocol.PayloadDecoder = (*AliveHeartbeat)(nil)
)

// Transmit periods. Actuation repeats fast enough that a single lost frame
// costs one cycle; body and heartbeat are slow-path.
const (
	periodDriveCommand   = 20 * time.Millisecond
	periodBrakeCommand   = 20 * time.Millisecond
	periodSteerCommand   = 20 * time.Millisecond
	periodBodyCommand    = 100 * time.Millisecond
	periodAliveHeartbeat = 100 * time.Millisecond
)

// DriveCommand is send slot 0x50: drive authority request, gear, target
// speed and throttle.
//
//	byte 0   bit0: auto drive request
//	byte 1   gear code
//	byte 2-3 target speed, uint16 LE, 0.01 m/s
//	byte 4   throttle percent
type DriveCommand struct {
	mu       sync.Mutex
	auto     bool
	gear     vehicle.Gear
	speedMps float64
	throttle float64
	pending  [commandFrameLen]byte
}

// NewDriveCommand returns a drive slot commanding neutral standstill.
func NewDriveCommand() *DriveCommand { return &DriveCommand{} }

func (m *DriveCommand) ID() uint32            { return FrameIDDriveCommand }
func (m *DriveCommand) Period() time.Duration { return periodDriveCommand }

// SetAutoRequest sets the drive authority request bit.
func (m *DriveCommand) SetAutoRequest(auto bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auto = auto
}

// SetGear sets the commanded gear.
func (m *DriveCommand) SetGear(g vehicle.Gear) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gear = g
}

// SetTargetSpeed sets the commanded speed in m/s.
func (m *DriveCommand) SetTargetSpeed(mps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speedMps = mps
}

// SetThrottle sets the commanded throttle percentage.
func (m *DriveCommand) SetThrottle(percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttle = percent
}

// Refresh re-encodes the pending payload from the typed fields.
func (m *DriveCommand) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = [commandFrameLen]byte{}
	if m.auto {
		m.pending[0] |= 0x01
	}
	m.pending[1] = gearCode(m.gear)
	binary.LittleEndian.PutUint16(m.pending[2:4], uint16(math.Round(m.speedMps/speedScale)))
	m.pending[4] = byte(math.Round(m.throttle))
}

// Payload returns a copy of the pending payload.
func (m *DriveCommand) Payload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, commandFrameLen)
	copy(out, m.pending[:])
	return out
}

// Decode reads a drive command payload into the to-send view.
func (m *DriveCommand) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: drive command: unexpected detail type %T", into)
	}
	if len(payload) < commandFrameLen {
		return fmt.Errorf("shuttle: drive command: payload too short: %d bytes", len(payload))
	}
	gear, ok := gearFromCode(payload[1])
	if !ok {
		return fmt.Errorf("shuttle: drive command: invalid gear code %d", payload[1])
	}
	d.DriveAuto = payload[0]&0x01 != 0
	d.Gear = gear
	d.SpeedMps = float64(binary.LittleEndian.Uint16(payload[2:4])) * speedScale
	d.ThrottlePercent = float64(payload[4])
	return nil
}

// BrakeCommand is send slot 0x46: brake percentage and parking brake.
//
//	byte 0   brake percent
//	byte 1   bit0: parking brake
type BrakeCommand struct {
	mu      sync.Mutex
	brake   float64
	parking bool
	pending [commandFrameLen]byte
}

// NewBrakeCommand returns a brake slot commanding released brakes.
func NewBrakeCommand() *BrakeCommand { return &BrakeCommand{} }

func (m *BrakeCommand) ID() uint32            { return FrameIDBrakeCommand }
func (m *BrakeCommand) Period() time.Duration { return periodBrakeCommand }

// Set sets the commanded brake percentage and parking brake state.
func (m *BrakeCommand) Set(percent float64, parking bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brake = percent
	m.parking = parking
}

// Refresh re-encodes the pending payload from the typed fields.
func (m *BrakeCommand) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = [commandFrameLen]byte{}
	m.pending[0] = byte(math.Round(m.brake))
	if m.parking {
		m.pending[1] |= 0x01
	}
}

// Payload returns a copy of the pending payload.
func (m *BrakeCommand) Payload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, commandFrameLen)
	copy(out, m.pending[:])
	return out
}

// Decode reads a brake command payload into the to-send view.
func (m *BrakeCommand) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: brake command: unexpected detail type %T", into)
	}
	if len(payload) < commandFrameLen {
		return fmt.Errorf("shuttle: brake command: payload too short: %d bytes", len(payload))
	}
	d.BrakePercent = float64(payload[0])
	d.ParkingBrake = payload[1]&0x01 != 0
	return nil
}

// SteerCommand is send slot 0x56: steer authority request and target angle.
//
//	byte 0   bit0: auto steer request
//	byte 1-2 target angle, int16 LE, 0.1 degrees, positive left
type SteerCommand struct {
	mu       sync.Mutex
	auto     bool
	angleDeg float64
	pending  [commandFrameLen]byte
}

// NewSteerCommand returns a steer slot commanding center.
func NewSteerCommand() *SteerCommand { return &SteerCommand{} }

func (m *SteerCommand) ID() uint32            { return FrameIDSteerCommand }
func (m *SteerCommand) Period() time.Duration { return periodSteerCommand }

// SetAutoRequest sets the steer authority request bit.
func (m *SteerCommand) SetAutoRequest(auto bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auto = auto
}

// SetAngle sets the commanded steering angle in degrees, positive left.
func (m *SteerCommand) SetAngle(deg float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.angleDeg = deg
}

// Refresh re-encodes the pending payload from the typed fields.
func (m *SteerCommand) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = [commandFrameLen]byte{}
	if m.auto {
		m.pending[0] |= 0x01
	}
	counts := int16(math.Round(m.angleDeg / angleScale))
	binary.LittleEndian.PutUint16(m.pending[1:3], uint16(counts))
}

// Payload returns a copy of the pending payload.
func (m *SteerCommand) Payload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, commandFrameLen)
	copy(out, m.pending[:])
	return out
}

// Decode reads a steer command payload into the to-send view.
func (m *SteerCommand) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: steer command: unexpected detail type %T", into)
	}
	if len(payload) < commandFrameLen {
		return fmt.Errorf("shuttle: steer command: payload too short: %d bytes", len(payload))
	}
	d.SteerAuto = payload[0]&0x01 != 0
	counts := int16(binary.LittleEndian.Uint16(payload[1:3]))
	d.SteerAngleDeg = float64(counts) * angleScale
	return nil
}

// BodyCommand is send slot 0x310: lights, turn signal and horn.
//
//	byte 0   bit0: headlights, bit1: horn
//	byte 1   turn signal code
type BodyCommand struct {
	mu         sync.Mutex
	headlights bool
	horn       bool
	turnSignal vehicle.TurnSignal
	pending    [commandFrameLen]byte
}

// NewBodyCommand returns a body slot with everything off.
func NewBodyCommand() *BodyCommand { return &BodyCommand{} }

func (m *BodyCommand) ID() uint32            { return FrameIDBodyCommand }
func (m *BodyCommand) Period() time.Duration { return periodBodyCommand }

// Set sets the commanded body state.
func (m *BodyCommand) Set(headlights bool, signal vehicle.TurnSignal, horn bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headlights = headlights
	m.turnSignal = signal
	m.horn = horn
}

// Refresh re-encodes the pending payload from the typed fields.
func (m *BodyCommand) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = [commandFrameLen]byte{}
	if m.headlights {
		m.pending[0] |= 0x01
	}
	if m.horn {
		m.pending[0] |= 0x02
	}
	m.pending[1] = turnSignalCode(m.turnSignal)
}

// Payload returns a copy of the pending payload.
func (m *BodyCommand) Payload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, commandFrameLen)
	copy(out, m.pending[:])
	return out
}

// Decode reads a body command payload into the to-send view.
func (m *BodyCommand) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: body command: unexpected detail type %T", into)
	}
	if len(payload) < commandFrameLen {
		return fmt.Errorf("shuttle: body command: payload too short: %d bytes", len(payload))
	}
	signal, ok := turnSignalFromCode(payload[1])
	if !ok {
		return fmt.Errorf("shuttle: body command: invalid turn signal code %d", payload[1])
	}
	d.Headlights = payload[0]&0x01 != 0
	d.Horn = payload[0]&0x02 != 0
	d.TurnSignal = signal
	return nil
}

// AliveHeartbeat is send slot 0x401: the watchdog frame the vehicle uses to
// verify the control side is alive. The counter advances only through
// RefreshHeartbeat; a plain Refresh re-encodes the current count so command
// updates never consume heartbeat ticks.
//
//	byte 0   low nibble: rolling alive counter
//	byte 7   XOR checksum of bytes 0..6
type AliveHeartbeat struct {
	mu      sync.Mutex
	counter uint8
	pending [commandFrameLen]byte
}

// NewAliveHeartbeat returns a heartbeat slot at count zero.
func NewAliveHeartbeat() *AliveHeartbeat {
	m := &AliveHeartbeat{}
	m.encode()
	return m
}

func (m *AliveHeartbeat) ID() uint32            { return FrameIDAliveHeartbeat }
func (m *AliveHeartbeat) Period() time.Duration { return periodAliveHeartbeat }

// Counter returns the current alive count.
func (m *AliveHeartbeat) Counter() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter
}

// Refresh re-encodes the pending payload without advancing the counter.
func (m *AliveHeartbeat) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encode()
}

// RefreshHeartbeat advances the alive counter and re-encodes.
func (m *AliveHeartbeat) RefreshHeartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter = (m.counter + 1) & 0x0F
	m.encode()
}

// encode assumes m.mu is held.
func (m *AliveHeartbeat) encode() {
	m.pending = [commandFrameLen]byte{}
	m.pending[0] = m.counter & 0x0F
	m.pending[7] = xorChecksum(m.pending[:7])
}

// Payload returns a copy of the pending payload.
func (m *AliveHeartbeat) Payload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, commandFrameLen)
	copy(out, m.pending[:])
	return out
}

// Decode reads a heartbeat payload into the to-send view, verifying the
// checksum.
func (m *AliveHeartbeat) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: heartbeat: unexpected detail type %T", into)
	}
	if len(payload) < commandFrameLen {
		return fmt.Errorf("shuttle: heartbeat: payload too short: %d bytes", len(payload))
	}
	if sum := xorChecksum(payload[:7]); sum != payload[7] {
		return fmt.Errorf("shuttle: heartbeat: checksum mismatch: computed 0x%02X, frame carries 0x%02X", sum, payload[7])
	}
	d.AliveCounter = payload[0] & 0x0F
	return nil
}

func xorChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}
