package shuttle

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/c360/canlink/protocol"
)

// DriveReport decodes frame 0x52: actual speed, gear, drive authority ack
// and throttle feedback.
//
//	byte 0-1 actual speed, uint16 LE, 0.01 m/s
//	byte 2   gear code
//	byte 3   bit0: drive authority acknowledged
//	byte 4   throttle percent feedback
type DriveReport struct{}

func (DriveReport) ID() uint32 { return FrameIDDriveReport }

func (DriveReport) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: drive report: unexpected detail type %T", into)
	}
	if len(payload) < 5 {
		return fmt.Errorf("shuttle: drive report: payload too short: %d bytes", len(payload))
	}
	gear, ok := gearFromCode(payload[2])
	if !ok {
		return fmt.Errorf("shuttle: drive report: invalid gear code %d", payload[2])
	}
	d.SpeedMps = float64(binary.LittleEndian.Uint16(payload[0:2])) * speedScale
	d.Gear = gear
	d.DriveAuto = payload[3]&0x01 != 0
	d.ThrottlePercent = float64(payload[4])
	d.LastDriveReport = time.Now()
	return nil
}

// BrakeReport decodes frame 0x47: brake feedback and parking brake state.
//
//	byte 0   brake percent
//	byte 1   bit0: parking brake engaged
type BrakeReport struct{}

func (BrakeReport) ID() uint32 { return FrameIDBrakeReport }

func (BrakeReport) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: brake report: unexpected detail type %T", into)
	}
	if len(payload) < 2 {
		return fmt.Errorf("shuttle: brake report: payload too short: %d bytes", len(payload))
	}
	d.BrakePercent = float64(payload[0])
	d.ParkingBrake = payload[1]&0x01 != 0
	d.LastBrakeReport = time.Now()
	return nil
}

// SteerReport decodes frame 0x57: actual steering angle and steer authority
// ack.
//
//	byte 0-1 actual angle, int16 LE, 0.1 degrees, positive left
//	byte 2   bit0: steer authority acknowledged
type SteerReport struct{}

func (SteerReport) ID() uint32 { return FrameIDSteerReport }

func (SteerReport) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: steer report: unexpected detail type %T", into)
	}
	if len(payload) < 3 {
		return fmt.Errorf("shuttle: steer report: payload too short: %d bytes", len(payload))
	}
	counts := int16(binary.LittleEndian.Uint16(payload[0:2]))
	d.SteerAngleDeg = float64(counts) * angleScale
	d.SteerAuto = payload[2]&0x01 != 0
	d.LastSteerReport = time.Now()
	return nil
}

// StatusReport decodes frame 0x101: vehicle mode, fault level, battery state
// of charge and error code.
//
//	byte 0   vehicle mode
//	byte 1   fault level, 0 none .. 3 critical
//	byte 2   battery state of charge, percent
//	byte 3   error code
type StatusReport struct{}

func (StatusReport) ID() uint32 { return FrameIDStatusReport }

func (StatusReport) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: status report: unexpected detail type %T", into)
	}
	if len(payload) < 4 {
		return fmt.Errorf("shuttle: status report: payload too short: %d bytes", len(payload))
	}
	d.VehicleMode = payload[0]
	d.FaultLevel = payload[1]
	d.BatterySOC = float64(payload[2])
	d.ErrorCode = payload[3]
	d.LastStatusReport = time.Now()
	return nil
}

// PowerReport decodes frame 0x214: power rail status and battery voltage.
//
//	byte 0   power status bits
//	byte 1-2 battery voltage, uint16 LE, 0.1 V
type PowerReport struct{}

func (PowerReport) ID() uint32 { return FrameIDPowerReport }

func (PowerReport) Decode(payload []byte, into protocol.Detail) error {
	d, ok := into.(*Detail)
	if !ok {
		return fmt.Errorf("shuttle: power report: unexpected detail type %T", into)
	}
	if len(payload) < 3 {
		return fmt.Errorf("shuttle: power report: payload too short: %d bytes", len(payload))
	}
	d.PowerStatus = payload[0]
	d.BatteryVoltage = float64(binary.LittleEndian.Uint16(payload[1:3])) * voltageScale
	d.LastPowerReport = time.Now()
	return nil
}
