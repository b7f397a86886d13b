// Package shuttle integrates a small autonomous delivery shuttle.
//
// The shuttle speaks five command frames and five report frames over
// classical CAN. Actuation commands repeat at 20ms, body and heartbeat
// frames at 100ms; the vehicle drops to manual control when commands or the
// heartbeat go stale, and reports its own state at a fixed cadence.
package shuttle

import (
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/vehicle"
)

// Name is the vehicle's registry name.
const Name = "shuttle"

// Frame identifiers of the shuttle protocol.
const (
	FrameIDDriveCommand   uint32 = 0x50
	FrameIDBrakeCommand   uint32 = 0x46
	FrameIDSteerCommand   uint32 = 0x56
	FrameIDBodyCommand    uint32 = 0x310
	FrameIDAliveHeartbeat uint32 = 0x401

	FrameIDDriveReport  uint32 = 0x52
	FrameIDBrakeReport  uint32 = 0x47
	FrameIDSteerReport  uint32 = 0x57
	FrameIDStatusReport uint32 = 0x101
	FrameIDPowerReport  uint32 = 0x214
)

// Wire scale factors.
const (
	speedScale   = 0.01 // m/s per count
	angleScale   = 0.1  // degrees per count
	voltageScale = 0.1  // volts per count
)

func init() {
	vehicle.Register(Name, vehicle.Factory{
		NewController: func() vehicle.Controller { return NewController() },
		NewTable:      NewTable,
	})
}

// NewTable builds the shuttle's protocol table with every report codec and
// command slot registered.
func NewTable() (*protocol.Table, error) {
	table, err := protocol.NewTable(func() protocol.Detail { return &Detail{} })
	if err != nil {
		return nil, err
	}

	recv := []protocol.RecvMessage{
		DriveReport{},
		BrakeReport{},
		SteerReport{},
		StatusReport{},
		PowerReport{},
	}
	for _, m := range recv {
		if err := table.AddRecvMessage(m); err != nil {
			return nil, err
		}
	}

	send := []protocol.SendMessage{
		NewDriveCommand(),
		NewBrakeCommand(),
		NewSteerCommand(),
		NewBodyCommand(),
		NewAliveHeartbeat(),
	}
	for _, m := range send {
		if err := table.AddSendMessage(m); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func gearCode(g vehicle.Gear) byte {
	switch g {
	case vehicle.GearDrive:
		return 1
	case vehicle.GearReverse:
		return 2
	case vehicle.GearPark:
		return 3
	default:
		return 0
	}
}

func gearFromCode(code byte) (vehicle.Gear, bool) {
	switch code {
	case 0:
		return vehicle.GearNeutral, true
	case 1:
		return vehicle.GearDrive, true
	case 2:
		return vehicle.GearReverse, true
	case 3:
		return vehicle.GearPark, true
	default:
		return vehicle.GearNeutral, false
	}
}

func turnSignalCode(t vehicle.TurnSignal) byte {
	switch t {
	case vehicle.TurnSignalLeft:
		return 1
	case vehicle.TurnSignalRight:
		return 2
	default:
		return 0
	}
}

func turnSignalFromCode(code byte) (vehicle.TurnSignal, bool) {
	switch code {
	case 0:
		return vehicle.TurnSignalNone, true
	case 1:
		return vehicle.TurnSignalLeft, true
	case 2:
		return vehicle.TurnSignalRight, true
	default:
		return vehicle.TurnSignalNone, false
	}
}
