package vehicle

import (
	"github.com/c360/canlink/config"
	"github.com/c360/canlink/protocol"
)

// SendRegistry is the slice of the frame sender a controller binds to:
// registration of the outbound frame set it drives. *sender.Sender
// implements it.
type SendRegistry interface {
	Register(msgs ...protocol.SendMessage) error
}

// Controller is one vehicle's command state machine. It owns the mapping
// from high-level commands to send-slot fields and derives the chassis
// snapshot from the received protocol view.
//
// Contract: a rejected Update/UpdateChassisCommand mutates nothing; the send
// slots' pending bytes stay exactly as the last accepted command left them.
// Controllers are called from one goroutine at a time (the orchestrator's
// caller serializes command updates); snapshot readers may be concurrent.
type Controller interface {
	// Init binds the controller to its tuning parameters, the sender it
	// drives, and the protocol table holding its frames.
	Init(params config.VehicleParams, sink SendRegistry, table *protocol.Table) error

	// Start arms the controller: report freshness tracking begins and
	// commands are accepted.
	Start() error

	// Stop disarms the controller. Idempotent.
	Stop() error

	// Update applies a low-level control command. A validation failure
	// rejects the whole command.
	Update(cmd *ControlCommand) error

	// UpdateChassisCommand applies a high-level external command.
	UpdateChassisCommand(cmd *ChassisCommand) error

	// Chassis returns the current vehicle snapshot.
	Chassis() Chassis

	// ReceivedDetail returns a copy of the accumulated received protocol
	// view.
	ReceivedDetail() protocol.Detail

	// SentDetail returns the pending to-send protocol view derived from
	// the send slots' current bytes.
	SentDetail() protocol.Detail

	// DrivingMode reports the current control authority.
	DrivingMode() DrivingMode

	// CommunicationFault reports whether the vehicle has gone silent
	// longer than the configured tolerance.
	CommunicationFault() bool

	// AddSendMessages registers the controller's outbound frame set with
	// the sender.
	AddSendMessages() error
}
