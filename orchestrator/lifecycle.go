package orchestrator

import (
	"fmt"

	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/framelog"
	"github.com/c360/canlink/receiver"
	"github.com/c360/canlink/sender"
	"github.com/c360/canlink/telemetry"
)

// Init constructs and wires the owned collaborators in a fixed order,
// aborting at the first failing step: transport handle, protocol table,
// receiver, sender, controller creation, controller initialization,
// telemetry channels. Nothing is rolled back on failure; the instance is
// terminal except for Stop, which stays safe to call.
func (o *Orchestrator) Init() error {
	switch o.State() {
	case StateInitialized, StateStarted:
		return errors.WrapInit(errors.ErrAlreadyStarted, "orchestrator", "Init", "check lifecycle state")
	case StateStopped, StateFailed:
		return errors.WrapInit(errors.ErrClosed, "orchestrator", "Init", "check lifecycle state")
	}

	if err := o.cfg.Validate(); err != nil {
		return o.fail(errors.WrapInit(
			fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"orchestrator", "Init", "validate configuration"))
	}

	handle, err := o.newTransport(o.cfg.Transport)
	if err != nil {
		return o.fail(errors.WrapCreation(
			fmt.Errorf("%w: %w", errors.ErrTransportCreation, err),
			"orchestrator", "Init", "create transport handle"))
	}
	o.handle = handle
	o.logger.Info("transport handle created", "transport", handle.Name())

	factory, err := o.resolveVehicle(o.cfg.Vehicle.Name)
	if err != nil {
		return o.fail(errors.WrapCreation(
			fmt.Errorf("%w: %w", errors.ErrProtocolTableCreation, err),
			"orchestrator", "Init", "resolve vehicle factory"))
	}
	table, err := factory.NewTable()
	if err != nil {
		return o.fail(errors.WrapCreation(
			fmt.Errorf("%w: %w", errors.ErrProtocolTableCreation, err),
			"orchestrator", "Init", "create protocol table"))
	}
	if table == nil {
		return o.fail(errors.WrapCreation(
			fmt.Errorf("%w: factory %q returned nil table", errors.ErrProtocolTableCreation, o.cfg.Vehicle.Name),
			"orchestrator", "Init", "create protocol table"))
	}
	o.table = table
	o.logger.Info("protocol table created", "vehicle", o.cfg.Vehicle.Name)

	// One shared diagnostic log; each direction binds only when its flag
	// asks for it.
	var rxLog, txLog *framelog.Logger
	if o.cfg.FrameLog.Enabled() {
		o.flog = framelog.New(o.cfg.FrameLog.Path, o.cfg.FrameLog.Rotation)
		if o.cfg.FrameLog.EnableReceiverLog {
			rxLog = o.flog
		}
		if o.cfg.FrameLog.EnableSenderLog {
			txLog = o.flog
		}
	}

	o.recv = o.newReceiver()
	if err := o.recv.Init(o.handle, o.table, rxLog,
		receiver.WithLogger(o.baseLogger), receiver.WithMetrics(o.metrics)); err != nil {
		return o.fail(errors.WrapInit(
			fmt.Errorf("%w: %w", errors.ErrReceiverInit, err),
			"orchestrator", "Init", "initialize receiver"))
	}
	o.logger.Info("receiver initialized")

	o.snd = o.newSender()
	if err := o.snd.Init(o.handle, o.table, txLog,
		sender.WithLogger(o.baseLogger), sender.WithMetrics(o.metrics)); err != nil {
		return o.fail(errors.WrapInit(
			fmt.Errorf("%w: %w", errors.ErrSenderInit, err),
			"orchestrator", "Init", "initialize sender"))
	}
	o.logger.Info("sender initialized")

	ctrl := factory.NewController()
	if ctrl == nil {
		return o.fail(errors.WrapCreation(
			fmt.Errorf("%w: factory %q returned nil controller", errors.ErrControllerCreation, o.cfg.Vehicle.Name),
			"orchestrator", "Init", "create vehicle controller"))
	}
	o.ctrl = ctrl
	o.logger.Info("vehicle controller created", "vehicle", o.cfg.Vehicle.Name)

	if err := o.ctrl.Init(o.cfg.Vehicle.Params, o.snd, o.table); err != nil {
		return o.fail(errors.WrapInit(
			fmt.Errorf("%w: %w", errors.ErrControllerInit, err),
			"orchestrator", "Init", "initialize vehicle controller"))
	}
	o.logger.Info("vehicle controller initialized")

	if o.cfg.Telemetry.Enabled && (o.detailWriter == nil || o.detailSenderWriter == nil) {
		return o.fail(errors.WrapInit(
			fmt.Errorf("%w: telemetry enabled but channel writers not provided", errors.ErrTelemetryInit),
			"orchestrator", "Init", "bind telemetry channels"))
	}
	o.logger.Info("telemetry channels bound",
		"detail_subject", channelSubject(o.detailWriter),
		"detail_sender_subject", channelSubject(o.detailSenderWriter))

	o.setState(StateInitialized)
	o.logger.Info("initialized",
		"vehicle", o.cfg.Vehicle.Name,
		"transport", o.handle.Name())
	return nil
}

// Start brings the subsystem live in dependency order: transport, receiver,
// sender, controller. Receiving is live before sending begins so the
// controller reacts to real vehicle feedback; the controller starts last
// because it may immediately write to the sender's protocol state.
func (o *Orchestrator) Start() error {
	switch o.State() {
	case StateCreated:
		return errors.WrapStart(errors.ErrNotInitialized, "orchestrator", "Start", "check lifecycle state")
	case StateStarted:
		return errors.WrapStart(errors.ErrAlreadyStarted, "orchestrator", "Start", "check lifecycle state")
	case StateStopped, StateFailed:
		return errors.WrapStart(errors.ErrClosed, "orchestrator", "Start", "check lifecycle state")
	}

	if err := o.handle.Start(); err != nil {
		return o.fail(errors.WrapStart(
			fmt.Errorf("%w: %w", errors.ErrTransportStart, err),
			"orchestrator", "Start", "start transport"))
	}
	o.logger.Info("transport started", "transport", o.handle.Name())

	if err := o.recv.Start(); err != nil {
		return o.fail(errors.WrapStart(
			fmt.Errorf("%w: %w", errors.ErrReceiverStart, err),
			"orchestrator", "Start", "start receiver"))
	}
	o.logger.Info("receiver started")

	if err := o.snd.Start(); err != nil {
		return o.fail(errors.WrapStart(
			fmt.Errorf("%w: %w", errors.ErrSenderStart, err),
			"orchestrator", "Start", "start sender"))
	}
	o.logger.Info("sender started")

	if err := o.ctrl.Start(); err != nil {
		return o.fail(errors.WrapStart(
			fmt.Errorf("%w: %w", errors.ErrControllerStart, err),
			"orchestrator", "Start", "start controller"))
	}
	o.logger.Info("controller started")

	o.setState(StateStarted)
	o.logger.Info("started")
	return nil
}

// Stop leaves the subsystem quiescent: sender, receiver, transport,
// controller, each stopped best-effort regardless of earlier failures.
// Errors are logged, never returned. Safe after a failed or partial Init
// and idempotent.
func (o *Orchestrator) Stop() {
	if o.State() == StateStopped {
		return
	}

	if o.snd != nil {
		if err := o.snd.Stop(); err != nil {
			o.logger.Warn("stop step failed", "step", "sender",
				"error", errors.WrapStop(err, "orchestrator", "Stop", "stop sender"))
		}
	}
	if o.recv != nil {
		if err := o.recv.Stop(); err != nil {
			o.logger.Warn("stop step failed", "step", "receiver",
				"error", errors.WrapStop(err, "orchestrator", "Stop", "stop receiver"))
		}
	}
	if o.handle != nil {
		if err := o.handle.Stop(); err != nil {
			o.logger.Warn("stop step failed", "step", "transport",
				"error", errors.WrapStop(err, "orchestrator", "Stop", "stop transport"))
		}
	}
	if o.ctrl != nil {
		if err := o.ctrl.Stop(); err != nil {
			o.logger.Warn("stop step failed", "step", "controller",
				"error", errors.WrapStop(err, "orchestrator", "Stop", "stop controller"))
		}
	}
	if o.flog != nil {
		if err := o.flog.Close(); err != nil {
			o.logger.Warn("stop step failed", "step", "frame log", "error", err)
		}
	}

	o.setState(StateStopped)
	o.logger.Info("stopped")
}

// fail marks the orchestrator terminal and passes the error through.
func (o *Orchestrator) fail(err error) error {
	o.setState(StateFailed)
	o.logger.Error("lifecycle step failed", "error", err)
	return err
}

func channelSubject(w telemetry.ChannelWriter) string {
	if w == nil {
		return "disabled"
	}
	if subject := w.Subject(); subject != "" {
		return subject
	}
	return "disabled"
}
