package orchestrator

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/canlink/config"
	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/framelog"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/receiver"
	"github.com/c360/canlink/sender"
	"github.com/c360/canlink/transport"
	"github.com/c360/canlink/vehicle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callLog records collaborator invocations in order across all fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.names() {
		if c == name {
			n++
		}
	}
	return n
}

type fakeDetail struct{}

func (d *fakeDetail) CloneDetail() protocol.Detail {
	c := *d
	return &c
}

type fakeHandle struct {
	log      *callLog
	startErr error
	stopErr  error
}

func (h *fakeHandle) Name() string { return "fake:bus" }

func (h *fakeHandle) Start() error {
	h.log.add("transport.start")
	return h.startErr
}

func (h *fakeHandle) Stop() error {
	h.log.add("transport.stop")
	return h.stopErr
}

func (h *fakeHandle) Send(transport.Frame) error { return nil }

func (h *fakeHandle) Receive(ctx context.Context) (transport.Frame, error) {
	<-ctx.Done()
	return transport.Frame{}, ctx.Err()
}

type fakeReceiver struct {
	log      *callLog
	initErr  error
	startErr error
	stopErr  error
}

func (r *fakeReceiver) Init(transport.Handle, *protocol.Table, *framelog.Logger, ...receiver.Option) error {
	r.log.add("receiver.init")
	return r.initErr
}

func (r *fakeReceiver) Start() error {
	r.log.add("receiver.start")
	return r.startErr
}

func (r *fakeReceiver) Stop() error {
	r.log.add("receiver.stop")
	return r.stopErr
}

func (r *fakeReceiver) Stats() receiver.Stats { return receiver.Stats{} }

type fakeSender struct {
	log          *callLog
	initErr      error
	startErr     error
	stopErr      error
	updateErr    error
	heartbeatErr error

	mu         sync.Mutex
	updates    int
	heartbeats int
	registered int
}

func (s *fakeSender) Init(transport.Handle, *protocol.Table, *framelog.Logger, ...sender.Option) error {
	s.log.add("sender.init")
	return s.initErr
}

func (s *fakeSender) Start() error {
	s.log.add("sender.start")
	return s.startErr
}

func (s *fakeSender) Stop() error {
	s.log.add("sender.stop")
	return s.stopErr
}

func (s *fakeSender) Update() error {
	s.log.add("sender.update")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates++
	return nil
}

func (s *fakeSender) UpdateHeartbeat() error {
	s.log.add("sender.updateHeartbeat")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heartbeatErr != nil {
		return s.heartbeatErr
	}
	s.heartbeats++
	return nil
}

func (s *fakeSender) Register(msgs ...protocol.SendMessage) error {
	s.log.add("sender.register")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered += len(msgs)
	return nil
}

func (s *fakeSender) ClearMessages() {
	s.log.add("sender.clear")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = 0
}

func (s *fakeSender) IsMessageClear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered == 0
}

func (s *fakeSender) Stats() sender.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sender.Stats{Registered: s.registered}
}

func (s *fakeSender) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type fakeSlot struct{}

func (m *fakeSlot) ID() uint32            { return 0x99 }
func (m *fakeSlot) Period() time.Duration { return time.Second }
func (m *fakeSlot) Refresh()              {}
func (m *fakeSlot) Payload() []byte       { return make([]byte, 8) }

type fakeController struct {
	log           *callLog
	initErr       error
	startErr      error
	stopErr       error
	updateErr     error
	chassisCmdErr error
	addErr        error

	sink       vehicle.SendRegistry
	chassis    vehicle.Chassis
	recvDetail protocol.Detail
	sentDetail protocol.Detail
	mode       vehicle.DrivingMode
	commFault  bool
}

func (c *fakeController) Init(_ config.VehicleParams, sink vehicle.SendRegistry, _ *protocol.Table) error {
	c.log.add("controller.init")
	c.sink = sink
	return c.initErr
}

func (c *fakeController) Start() error {
	c.log.add("controller.start")
	return c.startErr
}

func (c *fakeController) Stop() error {
	c.log.add("controller.stop")
	return c.stopErr
}

func (c *fakeController) Update(*vehicle.ControlCommand) error {
	c.log.add("controller.update")
	return c.updateErr
}

func (c *fakeController) UpdateChassisCommand(*vehicle.ChassisCommand) error {
	c.log.add("controller.updateChassis")
	return c.chassisCmdErr
}

func (c *fakeController) Chassis() vehicle.Chassis { return c.chassis }

func (c *fakeController) ReceivedDetail() protocol.Detail { return c.recvDetail }

func (c *fakeController) SentDetail() protocol.Detail { return c.sentDetail }

func (c *fakeController) DrivingMode() vehicle.DrivingMode { return c.mode }

func (c *fakeController) CommunicationFault() bool { return c.commFault }

func (c *fakeController) AddSendMessages() error {
	c.log.add("controller.addSendMessages")
	if c.addErr != nil {
		return c.addErr
	}
	return c.sink.Register(&fakeSlot{})
}

type fakeWriter struct {
	subject string
	err     error

	mu    sync.Mutex
	wrote []any
}

func (w *fakeWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.wrote = append(w.wrote, v)
	return nil
}

func (w *fakeWriter) Subject() string { return w.subject }

func (w *fakeWriter) written() []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]any, len(w.wrote))
	copy(out, w.wrote)
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Transport = transport.Config{Type: transport.TypeVirtual, Channel: "orch-fake"}
	cfg.Vehicle.Name = "fake"
	cfg.Telemetry.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.FrameLog = config.FrameLogConfig{}
	return cfg
}

type fixture struct {
	log          *callLog
	handle       *fakeHandle
	recv         *fakeReceiver
	snd          *fakeSender
	ctrl         *fakeController
	orch         *Orchestrator
	transportErr error
	resolveErr   error
	tableErr     error
	nilCtrl      bool
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{log: &callLog{}}
	f.handle = &fakeHandle{log: f.log}
	f.recv = &fakeReceiver{log: f.log}
	f.snd = &fakeSender{log: f.log}
	f.ctrl = &fakeController{log: f.log}

	opts = append([]Option{WithLogger(testLogger())}, opts...)
	f.orch = New(testConfig(), opts...)
	f.orch.newTransport = func(transport.Config) (transport.Handle, error) {
		f.log.add("transport.create")
		if f.transportErr != nil {
			return nil, f.transportErr
		}
		return f.handle, nil
	}
	f.orch.newReceiver = func() frameReceiver { return f.recv }
	f.orch.newSender = func() frameSender { return f.snd }
	f.orch.resolveVehicle = func(string) (vehicle.Factory, error) {
		f.log.add("vehicle.resolve")
		if f.resolveErr != nil {
			return vehicle.Factory{}, f.resolveErr
		}
		return vehicle.Factory{
			NewController: func() vehicle.Controller {
				if f.nilCtrl {
					return nil
				}
				return f.ctrl
			},
			NewTable: func() (*protocol.Table, error) {
				f.log.add("table.create")
				if f.tableErr != nil {
					return nil, f.tableErr
				}
				return protocol.NewTable(func() protocol.Detail { return &fakeDetail{} })
			},
		}, nil
	}
	return f
}

func (f *fixture) initAndStart(t *testing.T) {
	t.Helper()
	require.NoError(t, f.orch.Init())
	require.NoError(t, f.orch.Start())
}

func TestOrchestrator_InitCallOrder(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.orch.Init())
	assert.Equal(t, StateInitialized, f.orch.State())
	assert.Equal(t, []string{
		"transport.create",
		"vehicle.resolve",
		"table.create",
		"receiver.init",
		"sender.init",
		"controller.init",
	}, f.log.names())
}

func TestOrchestrator_InitFailFast(t *testing.T) {
	boom := stderrors.New("boom")

	cases := []struct {
		name     string
		arrange  func(f *fixture)
		sentinel error
		creation bool
		// lastCall is the deepest collaborator call that may appear.
		mustNotReach string
	}{
		{
			name:         "transport create",
			arrange:      func(f *fixture) { f.transportErr = boom },
			sentinel:     errors.ErrTransportCreation,
			creation:     true,
			mustNotReach: "vehicle.resolve",
		},
		{
			name:         "vehicle resolve",
			arrange:      func(f *fixture) { f.resolveErr = boom },
			sentinel:     errors.ErrProtocolTableCreation,
			creation:     true,
			mustNotReach: "table.create",
		},
		{
			name:         "table create",
			arrange:      func(f *fixture) { f.tableErr = boom },
			sentinel:     errors.ErrProtocolTableCreation,
			creation:     true,
			mustNotReach: "receiver.init",
		},
		{
			name:         "receiver init",
			arrange:      func(f *fixture) { f.recv.initErr = boom },
			sentinel:     errors.ErrReceiverInit,
			mustNotReach: "sender.init",
		},
		{
			name:         "sender init",
			arrange:      func(f *fixture) { f.snd.initErr = boom },
			sentinel:     errors.ErrSenderInit,
			mustNotReach: "controller.init",
		},
		{
			name:         "controller create",
			arrange:      func(f *fixture) { f.nilCtrl = true },
			sentinel:     errors.ErrControllerCreation,
			creation:     true,
			mustNotReach: "controller.init",
		},
		{
			name:         "controller init",
			arrange:      func(f *fixture) { f.ctrl.initErr = boom },
			sentinel:     errors.ErrControllerInit,
			mustNotReach: "controller.start",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.arrange(f)

			err := f.orch.Init()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			if tc.creation {
				assert.True(t, errors.IsCreation(err))
			} else {
				assert.True(t, errors.IsInit(err))
			}
			assert.Equal(t, StateFailed, f.orch.State())
			assert.NotContains(t, f.log.names(), tc.mustNotReach)
		})
	}
}

func TestOrchestrator_InitTelemetryStep(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Enabled = true

	t.Run("writers missing", func(t *testing.T) {
		f := newFixture(t)
		f.orch.cfg = cfg.Clone()

		err := f.orch.Init()
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrTelemetryInit)
		assert.True(t, errors.IsInit(err))
		assert.Equal(t, StateFailed, f.orch.State())
		// Telemetry is the last step; the controller was already wired.
		assert.Contains(t, f.log.names(), "controller.init")
	})

	t.Run("writers provided", func(t *testing.T) {
		f := newFixture(t,
			WithDetailWriter(&fakeWriter{subject: "d"}),
			WithDetailSenderWriter(&fakeWriter{subject: "ds"}))
		f.orch.cfg = cfg.Clone()

		require.NoError(t, f.orch.Init())
		assert.Equal(t, StateInitialized, f.orch.State())
	})
}

func TestOrchestrator_InitInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Vehicle.Name = ""
	f := newFixture(t)
	f.orch.cfg = cfg.Clone()

	err := f.orch.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Equal(t, StateFailed, f.orch.State())
	assert.Empty(t, f.log.names(), "no collaborator construction on invalid config")
}

func TestOrchestrator_InitLifecycleGuards(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Init())

	err := f.orch.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	f.orch.Stop()
	err = f.orch.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestOrchestrator_StartCallOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Init())
	before := len(f.log.names())

	require.NoError(t, f.orch.Start())
	assert.Equal(t, StateStarted, f.orch.State())
	assert.Equal(t, []string{
		"transport.start",
		"receiver.start",
		"sender.start",
		"controller.start",
	}, f.log.names()[before:])
}

func TestOrchestrator_StartFailFast(t *testing.T) {
	boom := stderrors.New("boom")

	cases := []struct {
		name         string
		arrange      func(f *fixture)
		sentinel     error
		mustNotReach string
	}{
		{
			name:         "transport",
			arrange:      func(f *fixture) { f.handle.startErr = boom },
			sentinel:     errors.ErrTransportStart,
			mustNotReach: "receiver.start",
		},
		{
			name:         "receiver",
			arrange:      func(f *fixture) { f.recv.startErr = boom },
			sentinel:     errors.ErrReceiverStart,
			mustNotReach: "sender.start",
		},
		{
			name:         "sender",
			arrange:      func(f *fixture) { f.snd.startErr = boom },
			sentinel:     errors.ErrSenderStart,
			mustNotReach: "controller.start",
		},
		{
			name:     "controller",
			arrange:  func(f *fixture) { f.ctrl.startErr = boom },
			sentinel: errors.ErrControllerStart,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.orch.Init())
			tc.arrange(f)

			err := f.orch.Start()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.True(t, errors.IsStart(err))
			assert.Equal(t, StateFailed, f.orch.State())
			if tc.mustNotReach != "" {
				assert.NotContains(t, f.log.names(), tc.mustNotReach)
			}
		})
	}
}

func TestOrchestrator_StartLifecycleGuards(t *testing.T) {
	f := newFixture(t)

	err := f.orch.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	require.NoError(t, f.orch.Init())
	require.NoError(t, f.orch.Start())
	err = f.orch.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	f.orch.Stop()
	err = f.orch.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestOrchestrator_StopInvokesAllFourDespiteFailures(t *testing.T) {
	boom := stderrors.New("boom")
	f := newFixture(t)
	f.initAndStart(t)

	f.handle.stopErr = boom
	f.recv.stopErr = boom
	f.snd.stopErr = boom
	f.ctrl.stopErr = boom

	before := len(f.log.names())
	f.orch.Stop()

	assert.Equal(t, []string{
		"sender.stop",
		"receiver.stop",
		"transport.stop",
		"controller.stop",
	}, f.log.names()[before:])
	assert.Equal(t, StateStopped, f.orch.State())

	// Idempotent: a second Stop touches nothing.
	after := len(f.log.names())
	f.orch.Stop()
	assert.Len(t, f.log.names(), after)
}

func TestOrchestrator_StopSafeAfterPartialInit(t *testing.T) {
	f := newFixture(t)
	f.recv.initErr = stderrors.New("boom")

	require.Error(t, f.orch.Init())
	f.orch.Stop()

	names := f.log.names()
	assert.Contains(t, names, "receiver.stop")
	assert.Contains(t, names, "transport.stop")
	assert.NotContains(t, names, "sender.stop")
	assert.NotContains(t, names, "controller.stop")
	assert.Equal(t, StateStopped, f.orch.State())
}

func TestOrchestrator_StopBeforeInit(t *testing.T) {
	f := newFixture(t)
	f.orch.Stop()
	assert.Empty(t, f.log.names())
	assert.Equal(t, StateStopped, f.orch.State())
}

func TestOrchestrator_RejectedCommandSkipsSender(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	f.ctrl.updateErr = errors.ErrCommandRejected
	f.orch.UpdateControlCommand(&vehicle.ControlCommand{})
	assert.Equal(t, 0, f.snd.updateCount(), "rejected command must not reach the sender")

	f.ctrl.chassisCmdErr = errors.ErrCommandRejected
	f.orch.UpdateChassisCommand(&vehicle.ChassisCommand{})
	assert.Equal(t, 0, f.snd.updateCount())
}

func TestOrchestrator_AcceptedCommandUpdatesSenderOnce(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)
	before := len(f.log.names())

	f.orch.UpdateControlCommand(&vehicle.ControlCommand{})
	assert.Equal(t, 1, f.snd.updateCount())
	assert.Equal(t, []string{"controller.update", "sender.update"}, f.log.names()[before:],
		"controller verdict precedes the sender refresh")

	// Two consecutive accepted commands refresh the sender exactly twice.
	f.orch.UpdateControlCommand(&vehicle.ControlCommand{})
	assert.Equal(t, 2, f.snd.updateCount())

	f.orch.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeManual})
	assert.Equal(t, 3, f.snd.updateCount())
}

func TestOrchestrator_CommandDroppedWhenNotStarted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Init())

	f.orch.UpdateControlCommand(&vehicle.ControlCommand{})
	f.orch.UpdateChassisCommand(&vehicle.ChassisCommand{})

	assert.NotContains(t, f.log.names(), "controller.update")
	assert.NotContains(t, f.log.names(), "controller.updateChassis")
	assert.Equal(t, 0, f.snd.updateCount())
}

func TestOrchestrator_SendProtocolSet(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	require.NoError(t, f.orch.AddSendProtocol())
	assert.False(t, f.orch.IsSendProtocolClear())

	f.orch.ClearSendProtocol()
	assert.True(t, f.orch.IsSendProtocolClear())

	// For any prior state: clear stays clear, add makes it non-clear again.
	f.orch.ClearSendProtocol()
	assert.True(t, f.orch.IsSendProtocolClear())

	require.NoError(t, f.orch.AddSendProtocol())
	assert.False(t, f.orch.IsSendProtocolClear())

	assert.Equal(t, 2, f.log.count("controller.addSendMessages"))
}

func TestOrchestrator_AddSendProtocolBeforeInit(t *testing.T) {
	f := newFixture(t)

	err := f.orch.AddSendProtocol()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotInitialized)
	assert.True(t, f.orch.IsSendProtocolClear())
}

func TestOrchestrator_UpdateHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	f.orch.UpdateHeartbeat()
	f.orch.UpdateHeartbeat()
	assert.Equal(t, 2, f.log.count("sender.updateHeartbeat"))

	// A failing refresh is logged, not propagated.
	f.snd.heartbeatErr = stderrors.New("boom")
	f.orch.UpdateHeartbeat()
	assert.Equal(t, 3, f.log.count("sender.updateHeartbeat"))
}

func TestOrchestrator_CommunicationFaultPassThrough(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	assert.False(t, f.orch.CheckChassisCommunicationFault())
	f.ctrl.commFault = true
	assert.True(t, f.orch.CheckChassisCommunicationFault())

	bare := New(testConfig(), WithLogger(testLogger()))
	assert.False(t, bare.CheckChassisCommunicationFault())
}

func TestOrchestrator_PublishChassis(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	f.ctrl.chassis = vehicle.Chassis{Mode: vehicle.ModeAuto, SpeedMps: 2.5}
	got := f.orch.PublishChassis()
	assert.Equal(t, vehicle.ModeAuto, got.Mode)
	assert.InDelta(t, 2.5, got.SpeedMps, 0.001)

	bare := New(testConfig(), WithLogger(testLogger()))
	assert.Equal(t, vehicle.ModeUnknown, bare.PublishChassis().Mode)
}

func TestOrchestrator_DetailChannelsNeverConflated(t *testing.T) {
	rx := &fakeWriter{subject: "vehicle.chassis.detail"}
	tx := &fakeWriter{subject: "vehicle.chassis.detail.sender"}
	f := newFixture(t, WithDetailWriter(rx), WithDetailSenderWriter(tx))
	f.initAndStart(t)

	received := &fakeDetail{}
	pending := &fakeDetail{}
	f.ctrl.recvDetail = received
	f.ctrl.sentDetail = pending

	f.orch.PublishChassisDetail()
	f.orch.PublishChassisDetailSender()
	f.orch.PublishChassisDetail()

	rxWrites := rx.written()
	txWrites := tx.written()
	require.Len(t, rxWrites, 2)
	require.Len(t, txWrites, 1)
	for _, w := range rxWrites {
		assert.Same(t, received, w)
	}
	assert.Same(t, pending, txWrites[0])
}

func TestOrchestrator_DetailPublishTolerates(t *testing.T) {
	t.Run("nil writers", func(t *testing.T) {
		f := newFixture(t)
		f.initAndStart(t)
		f.ctrl.recvDetail = &fakeDetail{}
		f.orch.PublishChassisDetail()
		f.orch.PublishChassisDetailSender()
	})

	t.Run("nil detail", func(t *testing.T) {
		w := &fakeWriter{subject: "d"}
		f := newFixture(t, WithDetailWriter(w))
		f.initAndStart(t)
		f.orch.PublishChassisDetail()
		assert.Empty(t, w.written())
	})

	t.Run("write error", func(t *testing.T) {
		w := &fakeWriter{subject: "d", err: stderrors.New("nats down")}
		f := newFixture(t, WithDetailWriter(w))
		f.initAndStart(t)
		f.ctrl.recvDetail = &fakeDetail{}
		f.orch.PublishChassisDetail()
	})

	t.Run("before init", func(t *testing.T) {
		bare := New(testConfig(), WithLogger(testLogger()))
		bare.PublishChassisDetail()
		bare.PublishChassisDetailSender()
	})
}

func TestOrchestrator_DrivingModePassThrough(t *testing.T) {
	f := newFixture(t)
	f.initAndStart(t)

	f.ctrl.mode = vehicle.ModeSteerOnly
	assert.Equal(t, vehicle.ModeSteerOnly, f.orch.DrivingMode())

	bare := New(testConfig(), WithLogger(testLogger()))
	assert.Equal(t, vehicle.ModeUnknown, bare.DrivingMode())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
