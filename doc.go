// Package canlink provides the vehicle CAN-bus interface subsystem: a
// lifecycle-managed bridge between a drive-by-wire vehicle's CAN network and
// the rest of the autonomy stack.
//
// # Philosophy: One Bus, One Owner
//
// canlink owns the CAN interface for exactly one vehicle. Everything above it
// speaks commands and chassis state; everything below it is raw frames. The
// subsystem has two independent concerns:
//
// Data plane (frames in, frames out):
//   - Transport: SocketCAN on Linux, an in-memory virtual bus for tests
//   - Receiver: polls frames off the bus and decodes them through the
//     vehicle's protocol table
//   - Sender: encodes registered send slots and transmits them on their
//     configured cadences
//
// Control plane (lifecycle and commands):
//   - Orchestrator: the fail-fast Init/Start, best-effort Stop sequencer
//     that owns every component above
//   - Controller: per-vehicle command validation, mode arbitration and
//     protocol slot population
//   - Telemetry: chassis state published over NATS, commands subscribed
//     from it
//
// canlink MUST NOT contain:
//   - Planning or control algorithms (it executes commands, it does not
//     compute them)
//   - Fleet logic (one process, one vehicle, one bus)
//   - Vehicle models beyond protocol codecs and command limits
//
// New vehicles plug in as packages under vehicle/ that register a Factory;
// nothing outside that package knows their frame layouts.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│           Orchestrator              │  Init / Start / Stop
//	│   (lifecycle, command routing)      │  command updates
//	└─────────────────────────────────────┘
//	      ↓ owns                ↓ owns
//	┌───────────────┐    ┌───────────────┐
//	│   Receiver    │    │    Sender     │   poll loop / transmit loop
//	│ (bus → table) │    │ (slots → bus) │
//	└───────┬───────┘    └───────┬───────┘
//	        ↓                    ↓
//	┌─────────────────────────────────────┐
//	│        Transport Handle             │   socketcan | virtual
//	│      (Start/Stop/Send/Receive)      │
//	└─────────────────────────────────────┘
//
// The vehicle Controller sits beside the pipeline: it validates incoming
// commands against the configured limits, latches emergency state, and writes
// accepted values into the sender's protocol slots. The protocol Table is the
// shared codec registry both directions decode through.
//
// # Framework Packages
//
// Data plane:
//   - transport: Frame type, Handle interface, named constructor registry,
//     virtual bus, SocketCAN implementation
//   - protocol: message table, receive/send codec interfaces, Detail views
//   - receiver: bus poll loop
//   - sender: send-slot registry and transmit loop
//   - framelog: rotating CBOR diagnostic log of raw bus traffic
//
// Control plane:
//   - orchestrator: lifecycle sequencing and command/telemetry operations
//   - vehicle: command and chassis types, Controller interface, vehicle
//     registry
//   - vehicle/shuttle: reference vehicle implementation
//
// Infrastructure:
//   - telemetry: NATS client and envelope writers
//   - metric: Prometheus pipeline metrics and HTTP endpoint
//   - health: component health monitor
//   - config: configuration loading and validation
//   - errors: lifecycle error taxonomy
//
// # Usage Patterns
//
// Basic lifecycle:
//
//	cfg := config.Default()
//	cfg.Transport.Channel = "can0"
//
//	orch := orchestrator.New(cfg,
//	    orchestrator.WithLogger(logger),
//	    orchestrator.WithMetrics(registry.Pipeline()))
//
//	if err := orch.Init(); err != nil {
//	    return err
//	}
//	if err := orch.Start(); err != nil {
//	    orch.Stop()
//	    return err
//	}
//	defer orch.Stop()
//
//	orch.AddSendProtocol()
//	orch.UpdateChassisCommand(&vehicle.ChassisCommand{TargetMode: vehicle.ModeAuto})
//	orch.UpdateControlCommand(&vehicle.ControlCommand{TargetSpeedMps: 2.0})
//
// Custom vehicle:
//
//	// Register a vehicle in its package init
//	func init() {
//	    vehicle.Register("rover", vehicle.Factory{
//	        NewTable:      NewTable,
//	        NewController: func() vehicle.Controller { return NewController() },
//	    })
//	}
//
// # Concurrency Model
//
// The orchestrator is internally non-concurrent: callers serialize mutating
// operations (the daemon funnels commands and scheduler ticks through one
// goroutine). Concurrency lives in the receiver's poll goroutine and the
// sender's transmit goroutine; protocol slots carry their own locks so a
// transmit never reads a torn payload.
//
// # Design Principles
//
// Fail fast, stop soft:
//   - Init and Start abort on the first failing step
//   - Stop runs every teardown step and only logs failures
//
// Commands never half-apply:
//   - A rejected command leaves the outbound frame set exactly as it was
//   - Acceptance is atomic: validate, write slots, then refresh the sender
//
// Testability:
//   - Every component starts from its zero value and wires through Init
//   - The virtual transport gives tests a real bus without hardware
//
// # Binary
//
// cmd/canlinkd runs the subsystem as a daemon: it loads configuration,
// connects NATS, drives the orchestrator lifecycle and schedules the
// periodic chassis, detail, heartbeat and fault-check loops.
package canlink
