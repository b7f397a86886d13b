// Package orchestrator wires the CAN-bus subsystem together: one transport
// handle, one protocol table, a frame receiver, a frame sender and a vehicle
// controller, owned for the orchestrator's whole lifetime and never shared.
//
// The orchestrator is not internally concurrent. Init, Start and Stop run
// once each as prologue and epilogue; calls that mutate the to-send protocol
// state (command updates, Add/ClearSendProtocol) must be serialized by the
// caller. Snapshot reads and heartbeat refresh may run concurrently with
// them: the owned components guard their own state.
package orchestrator

import (
	"log/slog"
	"sync/atomic"

	"github.com/c360/canlink/config"
	"github.com/c360/canlink/framelog"
	"github.com/c360/canlink/metric"
	"github.com/c360/canlink/protocol"
	"github.com/c360/canlink/receiver"
	"github.com/c360/canlink/sender"
	"github.com/c360/canlink/telemetry"
	"github.com/c360/canlink/transport"
	"github.com/c360/canlink/vehicle"
)

// State is the orchestrator's lifecycle position.
type State int32

const (
	StateCreated State = iota
	StateInitialized
	StateStarted
	StateStopped
	StateFailed
)

var stateNames = map[State]string{
	StateCreated:     "created",
	StateInitialized: "initialized",
	StateStarted:     "started",
	StateStopped:     "stopped",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// frameReceiver is the slice of the receiver the orchestrator drives.
type frameReceiver interface {
	Init(handle transport.Handle, table *protocol.Table, diagnostic *framelog.Logger, opts ...receiver.Option) error
	Start() error
	Stop() error
	Stats() receiver.Stats
}

// frameSender is the slice of the sender the orchestrator drives. It is a
// superset of vehicle.SendRegistry so the controller can register its
// outbound frame set through the same value.
type frameSender interface {
	Init(handle transport.Handle, table *protocol.Table, diagnostic *framelog.Logger, opts ...sender.Option) error
	Start() error
	Stop() error
	Update() error
	UpdateHeartbeat() error
	Register(msgs ...protocol.SendMessage) error
	ClearMessages()
	IsMessageClear() bool
	Stats() sender.Stats
}

var (
	_ frameReceiver = (*receiver.Receiver)(nil)
	_ frameSender   = (*sender.Sender)(nil)
)

// Orchestrator owns the subsystem's four collaborators and the protocol
// table lent to three of them.
type Orchestrator struct {
	cfg        *config.Config
	baseLogger *slog.Logger
	logger     *slog.Logger
	metrics    *metric.Pipeline

	detailWriter       telemetry.ChannelWriter
	detailSenderWriter telemetry.ChannelWriter

	state atomic.Int32

	handle transport.Handle
	table  *protocol.Table
	recv   frameReceiver
	snd    frameSender
	ctrl   vehicle.Controller
	flog   *framelog.Logger

	// Construction seams; tests substitute instrumented collaborators.
	newTransport   func(cfg transport.Config) (transport.Handle, error)
	newReceiver    func() frameReceiver
	newSender      func() frameSender
	resolveVehicle func(name string) (vehicle.Factory, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger handed to the orchestrator and its owned
// components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.baseLogger = logger
		}
	}
}

// WithMetrics sets the metrics pipeline. Nil disables recording.
func WithMetrics(p *metric.Pipeline) Option {
	return func(o *Orchestrator) {
		o.metrics = p
	}
}

// WithDetailWriter sets the telemetry channel carrying the received protocol
// view. Nil leaves the channel disabled.
func WithDetailWriter(w telemetry.ChannelWriter) Option {
	return func(o *Orchestrator) {
		o.detailWriter = w
	}
}

// WithDetailSenderWriter sets the telemetry channel carrying the to-send
// protocol view. Nil leaves the channel disabled.
func WithDetailSenderWriter(w telemetry.ChannelWriter) Option {
	return func(o *Orchestrator) {
		o.detailSenderWriter = w
	}
}

// New creates an orchestrator for the given configuration. The config is
// cloned; later mutation by the caller has no effect. Nothing is constructed
// or validated until Init.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:            cfg.Clone(),
		baseLogger:     slog.Default(),
		newTransport:   transport.New,
		newReceiver:    func() frameReceiver { return &receiver.Receiver{} },
		newSender:      func() frameSender { return &sender.Sender{} },
		resolveVehicle: vehicle.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.baseLogger.With("component", "orchestrator")
	return o
}

// State returns the current lifecycle position.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.metrics.RecordLifecycleTransition(s.String())
}

// DrivingMode reports the controller's current control authority.
func (o *Orchestrator) DrivingMode() vehicle.DrivingMode {
	if o.ctrl == nil {
		return vehicle.ModeUnknown
	}
	return o.ctrl.DrivingMode()
}

// ReceiverStats returns the receiver's frame counters.
func (o *Orchestrator) ReceiverStats() receiver.Stats {
	if o.recv == nil {
		return receiver.Stats{}
	}
	return o.recv.Stats()
}

// SenderStats returns the sender's frame counters.
func (o *Orchestrator) SenderStats() sender.Stats {
	if o.snd == nil {
		return sender.Stats{}
	}
	return o.snd.Stats()
}
