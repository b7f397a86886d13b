package shuttle

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/canlink/config"
	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/sender"
	"github.com/c360/canlink/transport"
	"github.com/c360/canlink/vehicle"
)

const testCommTimeout = 60 * time.Millisecond

func testParams() config.VehicleParams {
	return config.VehicleParams{
		MaxSpeedMps:        8,
		MaxSteerAngleDeg:   28,
		MaxThrottlePercent: 100,
		MaxBrakePercent:    100,
		CommTimeout:        config.Duration(testCommTimeout),
	}
}

type harness struct {
	ctrl  *Controller
	table *protocol.Table
	snd   *sender.Sender
}

// newHarness wires controller, sender and table against an idle virtual
// handle. Nothing transmits: shuttle slots are all periodic and the loop
// never starts, so these tests exercise state, not the bus.
func newHarness(t *testing.T, channel string) *harness {
	t.Helper()

	table, err := NewTable()
	require.NoError(t, err)

	handle := transport.VirtualHub(channel).Open()
	snd := &sender.Sender{}
	require.NoError(t, snd.Init(handle, table, nil))

	ctrl := NewController()
	require.NoError(t, ctrl.Init(testParams(), snd, table))
	return &harness{ctrl: ctrl, table: table, snd: snd}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start())
}

// report feed helpers; payloads follow the frame layouts in recv.go.

func (h *harness) feedDriveReport(t *testing.T, speedMps float64, gear byte, autoAck bool, throttle byte) {
	t.Helper()
	p := make([]byte, 8)
	binary.LittleEndian.PutUint16(p[0:2], uint16(speedMps/speedScale))
	p[2] = gear
	if autoAck {
		p[3] = 0x01
	}
	p[4] = throttle
	require.NoError(t, h.table.Decode(FrameIDDriveReport, p))
}

func (h *harness) feedSteerReport(t *testing.T, angleDeg float64, autoAck bool) {
	t.Helper()
	p := make([]byte, 8)
	binary.LittleEndian.PutUint16(p[0:2], uint16(int16(angleDeg/angleScale)))
	if autoAck {
		p[2] = 0x01
	}
	require.NoError(t, h.table.Decode(FrameIDSteerReport, p))
}

func (h *harness) feedBrakeReport(t *testing.T, brake byte, parking bool) {
	t.Helper()
	p := make([]byte, 8)
	p[0] = brake
	if parking {
		p[1] = 0x01
	}
	require.NoError(t, h.table.Decode(FrameIDBrakeReport, p))
}

func (h *harness) feedStatusReport(t *testing.T, mode, faultLevel, soc, errorCode byte) {
	t.Helper()
	require.NoError(t, h.table.Decode(FrameIDStatusReport, []byte{mode, faultLevel, soc, errorCode}))
}

// slotPayloads snapshots every send slot's pending bytes.
func slotPayloads(table *protocol.Table) map[uint32][]byte {
	out := make(map[uint32][]byte)
	for _, m := range table.SendMessages() {
		out[m.ID()] = m.Payload()
	}
	return out
}

func TestController_InitValidation(t *testing.T) {
	table, err := NewTable()
	require.NoError(t, err)
	handle := transport.VirtualHub("shuttle-init-validation").Open()
	snd := &sender.Sender{}
	require.NoError(t, snd.Init(handle, table, nil))

	ctrl := NewController()
	err = ctrl.Init(config.VehicleParams{}, snd, table)
	require.Error(t, err)
	assert.True(t, errors.IsInit(err))
	assert.Contains(t, err.Error(), "validate vehicle parameters")

	err = ctrl.Init(testParams(), nil, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil sender")

	err = ctrl.Init(testParams(), snd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil protocol table")

	require.NoError(t, ctrl.Init(testParams(), snd, table))
	err = ctrl.Init(testParams(), snd, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
}

func TestController_InitRejectsForeignTable(t *testing.T) {
	foreign, err := protocol.NewTable(func() protocol.Detail { return &Detail{} })
	require.NoError(t, err)
	handle := transport.VirtualHub("shuttle-foreign-table").Open()
	snd := &sender.Sender{}
	require.NoError(t, snd.Init(handle, foreign, nil))

	ctrl := NewController()
	err = ctrl.Init(testParams(), snd, foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no drive command")
}

func TestController_LifecycleGating(t *testing.T) {
	ctrl := NewController()

	err := ctrl.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	h := newHarness(t, "shuttle-lifecycle")
	err = h.ctrl.Update(&vehicle.ControlCommand{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotStarted)

	err = h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeManual})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotStarted)

	h.start(t)
	require.NoError(t, h.ctrl.Stop())
	require.NoError(t, h.ctrl.Stop())

	err = h.ctrl.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrClosed)

	err = h.ctrl.Update(&vehicle.ControlCommand{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotStarted)
}

func TestController_RejectedCommandMutatesNothing(t *testing.T) {
	h := newHarness(t, "shuttle-reject-bytes")
	h.start(t)

	accepted := &vehicle.ControlCommand{
		TargetSpeedMps:  2.5,
		ThrottlePercent: 30,
		BrakePercent:    0,
		SteerPercent:    25,
		Gear:            vehicle.GearDrive,
		Headlights:      true,
	}
	require.NoError(t, h.ctrl.Update(accepted))
	require.NoError(t, h.snd.Update())
	before := slotPayloads(h.table)

	rejected := []*vehicle.ControlCommand{
		nil,
		{TargetSpeedMps: 99},
		{TargetSpeedMps: -1},
		{ThrottlePercent: 150},
		{BrakePercent: -5},
		{SteerPercent: 101},
		{SteerPercent: -101},
	}
	for _, cmd := range rejected {
		err := h.ctrl.Update(cmd)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrCommandRejected)
		assert.True(t, errors.IsUpdate(err))
	}

	// Even a forced re-encode yields the accepted command's bytes: the
	// rejected commands touched no slot fields.
	require.NoError(t, h.snd.Update())
	after := slotPayloads(h.table)
	assert.Equal(t, before, after)
}

func TestController_NonFiniteCommandRejected(t *testing.T) {
	h := newHarness(t, "shuttle-nan")
	h.start(t)

	nan := math.NaN()
	cases := []*vehicle.ControlCommand{
		{TargetSpeedMps: nan},
		{ThrottlePercent: nan},
		{BrakePercent: math.Inf(1)},
		{SteerPercent: math.Inf(-1)},
	}
	for _, cmd := range cases {
		err := h.ctrl.Update(cmd)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrCommandRejected)
		assert.Contains(t, err.Error(), "not finite")
	}
}

func TestController_AcceptedCommandWritesSlots(t *testing.T) {
	h := newHarness(t, "shuttle-accept-bytes")
	h.start(t)

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeAuto}))

	cmd := &vehicle.ControlCommand{
		TargetSpeedMps:  3.0,
		ThrottlePercent: 40,
		BrakePercent:    10,
		SteerPercent:    -50,
		Gear:            vehicle.GearDrive,
		ParkingBrake:    false,
		Headlights:      true,
		TurnSignal:      vehicle.TurnSignalLeft,
		Horn:            false,
	}
	require.NoError(t, h.ctrl.Update(cmd))
	require.NoError(t, h.snd.Update())

	sent, ok := h.ctrl.SentDetail().(*Detail)
	require.True(t, ok)
	assert.InDelta(t, 3.0, sent.SpeedMps, 0.01)
	assert.InDelta(t, 40, sent.ThrottlePercent, 0.5)
	assert.InDelta(t, 10, sent.BrakePercent, 0.5)
	assert.InDelta(t, -14.0, sent.SteerAngleDeg, 0.05, "steer -50%% of 28 degrees")
	assert.Equal(t, vehicle.GearDrive, sent.Gear)
	assert.True(t, sent.DriveAuto)
	assert.True(t, sent.SteerAuto)
	assert.True(t, sent.Headlights)
	assert.Equal(t, vehicle.TurnSignalLeft, sent.TurnSignal)
}

func TestController_AutoModeEngagement(t *testing.T) {
	h := newHarness(t, "shuttle-auto-engage")
	h.start(t)

	assert.Equal(t, vehicle.ModeUnknown, h.ctrl.DrivingMode(), "no reports yet")

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeAuto}))

	// Reports without authority acks: commanded auto, vehicle still manual.
	h.feedDriveReport(t, 0, 0, false, 0)
	h.feedSteerReport(t, 0, false)
	assert.Equal(t, vehicle.ModeManual, h.ctrl.DrivingMode())

	// Drive ack alone is not enough for full auto.
	h.feedDriveReport(t, 0, 0, true, 0)
	assert.Equal(t, vehicle.ModeManual, h.ctrl.DrivingMode())

	h.feedSteerReport(t, 0, true)
	assert.Equal(t, vehicle.ModeAuto, h.ctrl.DrivingMode())

	// Stale acknowledgements drop the mode back to manual.
	time.Sleep(testCommTimeout + 40*time.Millisecond)
	assert.Equal(t, vehicle.ModeManual, h.ctrl.DrivingMode())

	// Fresh acks re-engage.
	h.feedDriveReport(t, 0, 0, true, 0)
	h.feedSteerReport(t, 0, true)
	assert.Equal(t, vehicle.ModeAuto, h.ctrl.DrivingMode())
}

func TestController_PartialAuthorityModes(t *testing.T) {
	h := newHarness(t, "shuttle-partial-modes")
	h.start(t)

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeSteerOnly}))
	h.feedSteerReport(t, 0, true)
	h.feedDriveReport(t, 0, 0, false, 0)
	assert.Equal(t, vehicle.ModeSteerOnly, h.ctrl.DrivingMode())

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeSpeedOnly}))
	h.feedDriveReport(t, 0, 0, true, 0)
	assert.Equal(t, vehicle.ModeSpeedOnly, h.ctrl.DrivingMode())

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeManual}))
	assert.Equal(t, vehicle.ModeManual, h.ctrl.DrivingMode())
}

func TestController_EmergencyLatch(t *testing.T) {
	h := newHarness(t, "shuttle-emergency")
	h.start(t)

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeAuto}))
	h.feedDriveReport(t, 1.0, 1, true, 10)
	h.feedSteerReport(t, 0, true)
	require.Equal(t, vehicle.ModeAuto, h.ctrl.DrivingMode())

	// Critical fault: emergency latches.
	h.feedStatusReport(t, 1, faultLevelEmergency, 80, 0x07)
	assert.Equal(t, vehicle.ModeEmergency, h.ctrl.DrivingMode())

	err := h.ctrl.Update(&vehicle.ControlCommand{TargetSpeedMps: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCommandRejected)
	assert.Contains(t, err.Error(), "emergency mode active")

	// Reset attempt while the fault is still reported: rejected.
	err = h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeManual})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still reported")

	// Fault clears on the bus, but the latch holds until a manual reset.
	h.feedStatusReport(t, 1, 0, 80, 0)
	assert.Equal(t, vehicle.ModeEmergency, h.ctrl.DrivingMode())

	err = h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeAuto})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command manual mode to reset")

	require.NoError(t, h.ctrl.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeManual}))
	assert.Equal(t, vehicle.ModeManual, h.ctrl.DrivingMode())
}

func TestController_CommunicationFault(t *testing.T) {
	h := newHarness(t, "shuttle-comm-fault")
	h.start(t)

	assert.False(t, h.ctrl.CommunicationFault(), "grace period runs from start")

	time.Sleep(testCommTimeout + 40*time.Millisecond)
	assert.True(t, h.ctrl.CommunicationFault(), "silence past the timeout is a fault")

	h.feedBrakeReport(t, 0, false)
	assert.False(t, h.ctrl.CommunicationFault(), "any report clears the fault")

	time.Sleep(testCommTimeout + 40*time.Millisecond)
	assert.True(t, h.ctrl.CommunicationFault())
}

func TestController_ChassisSnapshot(t *testing.T) {
	h := newHarness(t, "shuttle-chassis")
	h.start(t)

	h.feedDriveReport(t, 3.45, 1, false, 25)
	h.feedBrakeReport(t, 10, true)
	h.feedSteerReport(t, -14.0, false)
	h.feedStatusReport(t, 0, 0, 87, 0x03)

	c := h.ctrl.Chassis()
	assert.Equal(t, vehicle.ModeManual, c.Mode)
	assert.InDelta(t, 3.45, c.SpeedMps, 0.001)
	assert.InDelta(t, 25, c.ThrottlePercent, 0.001)
	assert.InDelta(t, 10, c.BrakePercent, 0.001)
	assert.InDelta(t, -50, c.SteerPercent, 0.5, "-14 degrees of 28 max")
	assert.Equal(t, vehicle.GearDrive, c.Gear)
	assert.True(t, c.ParkingBrake)
	assert.InDelta(t, 87, c.BatterySOC, 0.001)
	assert.Equal(t, uint8(0x03), c.ErrorCode)
	assert.False(t, c.CommFault)
}

func TestController_ChassisBeforeInit(t *testing.T) {
	ctrl := NewController()
	c := ctrl.Chassis()
	assert.Equal(t, vehicle.ModeUnknown, c.Mode)
	assert.False(t, ctrl.CommunicationFault())
	assert.Nil(t, ctrl.ReceivedDetail())
	assert.Nil(t, ctrl.SentDetail())
}

func TestController_AddSendMessages(t *testing.T) {
	ctrl := NewController()
	err := ctrl.AddSendMessages()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	h := newHarness(t, "shuttle-add-send")
	require.NoError(t, h.ctrl.AddSendMessages())
	assert.Equal(t, 5, h.snd.Stats().Registered)
	assert.False(t, h.snd.IsMessageClear())

	// Idempotent: a second registration does not duplicate slots.
	require.NoError(t, h.ctrl.AddSendMessages())
	assert.Equal(t, 5, h.snd.Stats().Registered)
}

func TestController_ReceivedDetailIsACopy(t *testing.T) {
	h := newHarness(t, "shuttle-detail-copy")
	h.start(t)

	h.feedStatusReport(t, 0, 0, 50, 0)
	d1, ok := h.ctrl.ReceivedDetail().(*Detail)
	require.True(t, ok)
	d1.BatterySOC = 1

	d2 := h.ctrl.ReceivedDetail().(*Detail)
	assert.InDelta(t, 50, d2.BatterySOC, 0.001)
}
