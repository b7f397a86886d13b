package shuttle

import (
	stderrors "errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/c360/canlink/config"
	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/vehicle"
)

// faultLevelEmergency is the report fault level at which the controller
// latches emergency mode. The latch clears only on a manual-mode command
// issued after the fault level has dropped back below it.
const faultLevelEmergency = 2

type ctrlState int

const (
	ctrlCreated ctrlState = iota
	ctrlInitialized
	ctrlStarted
	ctrlStopped
)

// Controller is the shuttle's command state machine. Commands are validated
// in full before any send-slot field changes, so a rejected command leaves
// the pending to-send bytes exactly as the last accepted command encoded
// them.
type Controller struct {
	mu     sync.Mutex
	state  ctrlState
	params config.VehicleParams
	sink   vehicle.SendRegistry
	table  *protocol.Table

	drive *DriveCommand
	brake *BrakeCommand
	steer *SteerCommand
	body  *BodyCommand
	alive *AliveHeartbeat

	targetMode vehicle.DrivingMode
	emergency  bool
	startedAt  time.Time
}

var _ vehicle.Controller = (*Controller)(nil)

// NewController returns an uninitialized controller targeting manual mode.
func NewController() *Controller {
	return &Controller{targetMode: vehicle.ModeManual}
}

// bindSlot pulls one typed send slot out of the table.
func bindSlot[T protocol.SendMessage](table *protocol.Table, id uint32, name string) (T, error) {
	var zero T
	slot, ok := table.SendMessage(id)
	if !ok {
		return zero, fmt.Errorf("table has no %s slot 0x%X", name, id)
	}
	typed, ok := slot.(T)
	if !ok {
		return zero, fmt.Errorf("slot 0x%X is %T, not the shuttle %s", id, slot, name)
	}
	return typed, nil
}

// Init binds the controller to its parameters, sender and protocol table.
// The table must be the one NewTable built: the controller keeps direct
// references to its send slots.
func (c *Controller) Init(params config.VehicleParams, sink vehicle.SendRegistry, table *protocol.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ctrlInitialized, ctrlStarted:
		return errors.WrapInit(errors.ErrAlreadyStarted, "shuttle", "Init", "check lifecycle state")
	case ctrlStopped:
		return errors.WrapInit(errors.ErrClosed, "shuttle", "Init", "check lifecycle state")
	}
	if err := params.Validate(); err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "validate vehicle parameters")
	}
	if sink == nil {
		return errors.WrapInit(stderrors.New("nil sender"), "shuttle", "Init", "validate sender")
	}
	if table == nil {
		return errors.WrapInit(stderrors.New("nil protocol table"), "shuttle", "Init", "validate protocol table")
	}

	drive, err := bindSlot[*DriveCommand](table, FrameIDDriveCommand, "drive command")
	if err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "bind send slots")
	}
	brake, err := bindSlot[*BrakeCommand](table, FrameIDBrakeCommand, "brake command")
	if err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "bind send slots")
	}
	steer, err := bindSlot[*SteerCommand](table, FrameIDSteerCommand, "steer command")
	if err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "bind send slots")
	}
	body, err := bindSlot[*BodyCommand](table, FrameIDBodyCommand, "body command")
	if err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "bind send slots")
	}
	alive, err := bindSlot[*AliveHeartbeat](table, FrameIDAliveHeartbeat, "alive heartbeat")
	if err != nil {
		return errors.WrapInit(err, "shuttle", "Init", "bind send slots")
	}

	c.params = params
	c.sink = sink
	c.table = table
	c.drive, c.brake, c.steer, c.body, c.alive = drive, brake, steer, body, alive
	c.state = ctrlInitialized
	return nil
}

// Start arms the controller: the communication-fault clock begins and
// commands are accepted.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ctrlCreated:
		return errors.WrapStart(errors.ErrNotInitialized, "shuttle", "Start", "check lifecycle state")
	case ctrlStarted:
		return errors.WrapStart(errors.ErrAlreadyStarted, "shuttle", "Start", "check lifecycle state")
	case ctrlStopped:
		return errors.WrapStart(errors.ErrClosed, "shuttle", "Start", "check lifecycle state")
	}
	c.startedAt = time.Now()
	c.state = ctrlStarted
	return nil
}

// Stop disarms the controller. Idempotent.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ctrlStopped
	return nil
}

// Update applies a low-level control command. Validation covers every field
// before the first slot write; a rejected command mutates nothing.
func (c *Controller) Update(cmd *vehicle.ControlCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ctrlStarted {
		return errors.WrapUpdate(errors.ErrNotStarted, "shuttle", "Update", "check lifecycle state")
	}
	d := c.refreshEmergencyLocked()
	if c.emergency {
		return errors.WrapUpdate(
			fmt.Errorf("%w: emergency mode active, fault level %d", errors.ErrCommandRejected, d.FaultLevel),
			"shuttle", "Update", "check driving mode")
	}
	if err := c.validateControlLocked(cmd); err != nil {
		return errors.WrapUpdate(err, "shuttle", "Update", "validate control command")
	}

	driveAuto, steerAuto := authorityBits(c.targetMode)
	c.drive.SetAutoRequest(driveAuto)
	c.drive.SetGear(cmd.Gear)
	c.drive.SetTargetSpeed(cmd.TargetSpeedMps)
	c.drive.SetThrottle(cmd.ThrottlePercent)
	c.brake.Set(cmd.BrakePercent, cmd.ParkingBrake)
	c.steer.SetAutoRequest(steerAuto)
	c.steer.SetAngle(cmd.SteerPercent / 100 * c.params.MaxSteerAngleDeg)
	c.body.Set(cmd.Headlights, cmd.TurnSignal, cmd.Horn)
	return nil
}

// UpdateChassisCommand applies a high-level external command: control
// authority and body signals. A manual-mode command is also the emergency
// latch reset, accepted only once the reported fault level has cleared.
func (c *Controller) UpdateChassisCommand(cmd *vehicle.ChassisCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ctrlStarted {
		return errors.WrapUpdate(errors.ErrNotStarted, "shuttle", "UpdateChassisCommand", "check lifecycle state")
	}
	if cmd == nil {
		return errors.WrapUpdate(
			fmt.Errorf("%w: nil command", errors.ErrCommandRejected),
			"shuttle", "UpdateChassisCommand", "validate chassis command")
	}
	switch cmd.TargetMode {
	case vehicle.ModeManual, vehicle.ModeAuto, vehicle.ModeSteerOnly, vehicle.ModeSpeedOnly:
	default:
		return errors.WrapUpdate(
			fmt.Errorf("%w: target mode %s is not commandable", errors.ErrCommandRejected, cmd.TargetMode),
			"shuttle", "UpdateChassisCommand", "validate chassis command")
	}

	d := c.refreshEmergencyLocked()
	if c.emergency {
		if cmd.TargetMode != vehicle.ModeManual {
			return errors.WrapUpdate(
				fmt.Errorf("%w: emergency mode active, command manual mode to reset", errors.ErrCommandRejected),
				"shuttle", "UpdateChassisCommand", "check driving mode")
		}
		if d.FaultLevel >= faultLevelEmergency {
			return errors.WrapUpdate(
				fmt.Errorf("%w: fault level %d still reported, emergency latch stays", errors.ErrCommandRejected, d.FaultLevel),
				"shuttle", "UpdateChassisCommand", "check driving mode")
		}
		c.emergency = false
	}

	c.targetMode = cmd.TargetMode
	driveAuto, steerAuto := authorityBits(c.targetMode)
	c.drive.SetAutoRequest(driveAuto)
	c.steer.SetAutoRequest(steerAuto)
	c.body.Set(cmd.Headlights, cmd.TurnSignal, cmd.Horn)
	return nil
}

// Chassis returns the current vehicle snapshot.
func (c *Controller) Chassis() vehicle.Chassis {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table == nil {
		return vehicle.Chassis{Mode: vehicle.ModeUnknown}
	}
	d := c.refreshEmergencyLocked()
	return vehicle.Chassis{
		Mode:            c.drivingModeLocked(d),
		SpeedMps:        d.SpeedMps,
		ThrottlePercent: d.ThrottlePercent,
		BrakePercent:    d.BrakePercent,
		SteerPercent:    steerPercent(d.SteerAngleDeg, c.params.MaxSteerAngleDeg),
		Gear:            d.Gear,
		ParkingBrake:    d.ParkingBrake,
		BatterySOC:      d.BatterySOC,
		ErrorCode:       d.ErrorCode,
		CommFault:       c.commFaultLocked(d),
	}
}

// ReceivedDetail returns a copy of the accumulated received view.
func (c *Controller) ReceivedDetail() protocol.Detail {
	c.mu.Lock()
	table := c.table
	c.mu.Unlock()
	if table == nil {
		return nil
	}
	return table.ReceivedDetail()
}

// SentDetail returns the pending to-send view derived from the command
// slots' current bytes.
func (c *Controller) SentDetail() protocol.Detail {
	c.mu.Lock()
	table := c.table
	c.mu.Unlock()
	if table == nil {
		return nil
	}
	return table.SentDetail()
}

// DrivingMode reports the current control authority.
func (c *Controller) DrivingMode() vehicle.DrivingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table == nil {
		return vehicle.ModeUnknown
	}
	return c.drivingModeLocked(c.refreshEmergencyLocked())
}

// CommunicationFault reports whether the vehicle has gone silent longer than
// the configured tolerance.
func (c *Controller) CommunicationFault() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table == nil {
		return false
	}
	d, _ := c.table.ReceivedDetail().(*Detail)
	if d == nil {
		return false
	}
	return c.commFaultLocked(d)
}

// AddSendMessages registers the shuttle's outbound frame set with the
// sender.
func (c *Controller) AddSendMessages() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ctrlCreated {
		return errors.WrapUpdate(errors.ErrNotInitialized, "shuttle", "AddSendMessages", "check lifecycle state")
	}
	return c.sink.Register(c.drive, c.brake, c.steer, c.body, c.alive)
}

// validateControlLocked checks every command field against the vehicle
// parameters. NaN and infinities are rejected explicitly: range comparisons
// let them through.
func (c *Controller) validateControlLocked(cmd *vehicle.ControlCommand) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", errors.ErrCommandRejected)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"target_speed_mps", cmd.TargetSpeedMps},
		{"throttle_percent", cmd.ThrottlePercent},
		{"brake_percent", cmd.BrakePercent},
		{"steer_percent", cmd.SteerPercent},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite", errors.ErrCommandRejected, f.name)
		}
	}
	if cmd.TargetSpeedMps < 0 || cmd.TargetSpeedMps > c.params.MaxSpeedMps {
		return fmt.Errorf("%w: target speed %.2f m/s outside [0, %.2f]",
			errors.ErrCommandRejected, cmd.TargetSpeedMps, c.params.MaxSpeedMps)
	}
	if cmd.ThrottlePercent < 0 || cmd.ThrottlePercent > c.params.MaxThrottlePercent {
		return fmt.Errorf("%w: throttle %.1f%% outside [0, %.1f]",
			errors.ErrCommandRejected, cmd.ThrottlePercent, c.params.MaxThrottlePercent)
	}
	if cmd.BrakePercent < 0 || cmd.BrakePercent > c.params.MaxBrakePercent {
		return fmt.Errorf("%w: brake %.1f%% outside [0, %.1f]",
			errors.ErrCommandRejected, cmd.BrakePercent, c.params.MaxBrakePercent)
	}
	if cmd.SteerPercent < -100 || cmd.SteerPercent > 100 {
		return fmt.Errorf("%w: steer %.1f%% outside [-100, 100]",
			errors.ErrCommandRejected, cmd.SteerPercent)
	}
	return nil
}

// refreshEmergencyLocked reads the received view and latches emergency mode
// when the reported fault level crosses the threshold.
func (c *Controller) refreshEmergencyLocked() *Detail {
	d, _ := c.table.ReceivedDetail().(*Detail)
	if d == nil {
		d = &Detail{}
	}
	if d.FaultLevel >= faultLevelEmergency {
		c.emergency = true
	}
	return d
}

// drivingModeLocked derives the effective mode: emergency latch first, then
// the commanded target gated on fresh authority acknowledgements.
func (c *Controller) drivingModeLocked(d *Detail) vehicle.DrivingMode {
	if c.state != ctrlStarted {
		return vehicle.ModeUnknown
	}
	if c.emergency {
		return vehicle.ModeEmergency
	}
	if d.LastReport().IsZero() {
		return vehicle.ModeUnknown
	}

	now := time.Now()
	timeout := c.params.CommTimeout.Std()
	driveFresh := !d.LastDriveReport.IsZero() && now.Sub(d.LastDriveReport) <= timeout
	steerFresh := !d.LastSteerReport.IsZero() && now.Sub(d.LastSteerReport) <= timeout

	switch c.targetMode {
	case vehicle.ModeAuto:
		if d.DriveAuto && d.SteerAuto && driveFresh && steerFresh {
			return vehicle.ModeAuto
		}
	case vehicle.ModeSteerOnly:
		if d.SteerAuto && steerFresh {
			return vehicle.ModeSteerOnly
		}
	case vehicle.ModeSpeedOnly:
		if d.DriveAuto && driveFresh {
			return vehicle.ModeSpeedOnly
		}
	}
	return vehicle.ModeManual
}

// commFaultLocked reports silence longer than CommTimeout. Before the first
// report the clock runs from Start.
func (c *Controller) commFaultLocked(d *Detail) bool {
	if c.state != ctrlStarted {
		return false
	}
	last := d.LastReport()
	if last.IsZero() {
		last = c.startedAt
	}
	return time.Since(last) > c.params.CommTimeout.Std()
}

func authorityBits(target vehicle.DrivingMode) (driveAuto, steerAuto bool) {
	switch target {
	case vehicle.ModeAuto:
		return true, true
	case vehicle.ModeSpeedOnly:
		return true, false
	case vehicle.ModeSteerOnly:
		return false, true
	default:
		return false, false
	}
}

func steerPercent(angleDeg, maxAngleDeg float64) float64 {
	if maxAngleDeg <= 0 {
		return 0
	}
	percent := angleDeg / maxAngleDeg * 100
	return math.Max(-100, math.Min(100, percent))
}
