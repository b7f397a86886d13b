// Package main implements the entry point for the canlinkd daemon. canlinkd
// owns the vehicle's CAN interface: it runs the orchestrator lifecycle,
// accepts command updates over NATS, and publishes chassis state on the
// telemetry channels at the configured cadences.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/canlink/config"
	"github.com/c360/canlink/health"
	"github.com/c360/canlink/metric"
	"github.com/c360/canlink/orchestrator"
	"github.com/c360/canlink/telemetry"
	"github.com/c360/canlink/vehicle"

	// Register the vehicles this build supports.
	_ "github.com/c360/canlink/vehicle/shuttle"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "canlinkd"
)

// commandQueueDepth bounds how many pending command updates the worker can
// fall behind before new ones are dropped.
const commandQueueDepth = 64

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	// Metrics registry first: every later piece records through its pipeline.
	registry := metric.NewRegistry()
	monitor := health.NewMonitor()

	metricsServer := startMetricsServer(cfg, registry, monitor)
	if metricsServer != nil {
		defer func() { _ = metricsServer.Stop() }()
	}

	client, err := setupTelemetry(ctx, cfg, logger, registry.Pipeline())
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close(ctx) }()
	}

	orch, chassisWriter, err := buildOrchestrator(cfg, logger, registry.Pipeline(), client)
	if err != nil {
		return err
	}

	// Run daemon with signal handling
	return runWithSignalHandling(ctx, cliCfg, cfg, orch, client, chassisWriter, monitor)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting canlinkd (vehicle CAN interface)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// startMetricsServer serves /metrics and /healthz when metrics are enabled.
// Returns nil when the endpoint is disabled.
func startMetricsServer(cfg *config.Config, registry *metric.Registry, monitor *health.Monitor) *metric.Server {
	if !cfg.Metrics.Enabled {
		slog.Info("Metrics endpoint disabled")
		return nil
	}

	server := metric.NewServer(cfg.Metrics.Addr, "/metrics", registry, monitor)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	slog.Info("Metrics server listening", "address", server.Address())
	return server
}

// setupTelemetry connects the NATS client. Returns nil without error when
// telemetry is disabled in configuration.
func setupTelemetry(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	pipeline *metric.Pipeline,
) (*telemetry.Client, error) {
	if !cfg.Telemetry.Enabled {
		slog.Info("Telemetry disabled, running without NATS")
		return nil, nil
	}

	opts := []telemetry.Option{
		telemetry.WithName(appName + "-" + cfg.Node.ID),
		telemetry.WithLogger(logger),
		telemetry.WithMetrics(pipeline),
		telemetry.WithConnectTimeout(cfg.Telemetry.ConnectTimeout.Std()),
		telemetry.WithReconnectWait(cfg.Telemetry.ReconnectWait.Std()),
		telemetry.WithMaxReconnects(cfg.Telemetry.MaxReconnects),
	}
	if cfg.Telemetry.Username != "" {
		opts = append(opts, telemetry.WithCredentials(cfg.Telemetry.Username, cfg.Telemetry.Password))
	}
	if cfg.Telemetry.Token != "" {
		opts = append(opts, telemetry.WithToken(cfg.Telemetry.Token))
	}

	client, err := telemetry.NewClient(cfg.Telemetry.URLs, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telemetry client: %w", err)
	}

	connectTimeout := cfg.Telemetry.ConnectTimeout.Std()
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return client, nil
}

// buildOrchestrator wires the orchestrator and the chassis telemetry writer.
// The orchestrator owns the two detail channels; the chassis snapshot channel
// stays with the daemon's publish loop.
func buildOrchestrator(
	cfg *config.Config,
	logger *slog.Logger,
	pipeline *metric.Pipeline,
	client *telemetry.Client,
) (*orchestrator.Orchestrator, *telemetry.Writer, error) {
	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(pipeline),
	}

	var chassisWriter *telemetry.Writer
	if client != nil {
		var err error
		chassisWriter, err = telemetry.NewWriter(client, cfg.Telemetry.ChassisSubject, cfg.Node.ID, "chassis")
		if err != nil {
			return nil, nil, fmt.Errorf("create chassis writer: %w", err)
		}

		detailWriter, err := telemetry.NewWriter(client, cfg.Telemetry.DetailSubject, cfg.Node.ID, "chassis_detail")
		if err != nil {
			return nil, nil, fmt.Errorf("create detail writer: %w", err)
		}

		senderWriter, err := telemetry.NewWriter(client, cfg.Telemetry.DetailSenderSubject, cfg.Node.ID, "chassis_detail_sender")
		if err != nil {
			return nil, nil, fmt.Errorf("create detail sender writer: %w", err)
		}

		opts = append(opts,
			orchestrator.WithDetailWriter(detailWriter),
			orchestrator.WithDetailSenderWriter(senderWriter))
	}

	return orchestrator.New(cfg, opts...), chassisWriter, nil
}

// subscribeCommands binds the inbound command subjects. Handlers decode on the
// NATS callback goroutine and hand the update to the worker loop, which is the
// only goroutine that calls into the orchestrator.
func subscribeCommands(
	client *telemetry.Client,
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	commands chan<- func(),
) error {
	if client == nil {
		return nil
	}

	if subject := cfg.Telemetry.ControlCommandSubject; subject != "" {
		err := client.Subscribe(subject, func(data []byte) {
			var cmd vehicle.ControlCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				slog.Warn("Malformed control command", "error", err)
				return
			}
			enqueue(commands, func() { orch.UpdateControlCommand(&cmd) })
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		slog.Info("Subscribed to control commands", "subject", subject)
	}

	if subject := cfg.Telemetry.ChassisCommandSubject; subject != "" {
		err := client.Subscribe(subject, func(data []byte) {
			var cmd vehicle.ChassisCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				slog.Warn("Malformed chassis command", "error", err)
				return
			}
			enqueue(commands, func() { orch.UpdateChassisCommand(&cmd) })
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		slog.Info("Subscribed to chassis commands", "subject", subject)
	}

	return nil
}

// enqueue never blocks the NATS callback. A stale command is worse than a
// dropped one, so the queue sheds when the worker falls behind.
func enqueue(commands chan<- func(), apply func()) {
	select {
	case commands <- apply:
	default:
		slog.Warn("Command queue full, dropping command")
	}
}

// runWithSignalHandling starts the orchestrator and blocks until a shutdown
// signal arrives, then drains and stops.
func runWithSignalHandling(
	ctx context.Context,
	cliCfg *CLIConfig,
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	client *telemetry.Client,
	chassisWriter *telemetry.Writer,
	monitor *health.Monitor,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := orch.Init(); err != nil {
		orch.Stop()
		return fmt.Errorf("initialize orchestrator: %w", err)
	}

	if err := orch.Start(); err != nil {
		orch.Stop()
		return fmt.Errorf("start orchestrator: %w", err)
	}

	if err := orch.AddSendProtocol(); err != nil {
		orch.Stop()
		return fmt.Errorf("register send protocol: %w", err)
	}

	commands := make(chan func(), commandQueueDepth)
	if err := subscribeCommands(client, cfg, orch, commands); err != nil {
		orch.Stop()
		return fmt.Errorf("subscribe commands: %w", err)
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runLoop(signalCtx, cfg, orch, commands, chassisWriter, monitor)
	}()

	slog.Info("canlinkd started",
		"transport", cfg.Transport.Type,
		"channel", cfg.Transport.Channel,
		"vehicle", cfg.Vehicle.Name)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	// The loop owns all orchestrator calls; wait for it before draining.
	<-loopDone
	drainAndStop(orch, cliCfg.ShutdownTimeout)

	slog.Info("canlinkd shutdown complete")
	return nil
}

// runLoop is the single goroutine that calls into the orchestrator after
// Start. Command updates and the periodic publish, heartbeat and fault-check
// ticks all interleave here, so no orchestrator call ever races another.
func runLoop(
	ctx context.Context,
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	commands <-chan func(),
	chassisWriter *telemetry.Writer,
	monitor *health.Monitor,
) {
	chassisTick := time.NewTicker(cfg.Scheduler.ChassisPeriod.Std())
	detailTick := time.NewTicker(cfg.Scheduler.DetailPeriod.Std())
	heartbeatTick := time.NewTicker(cfg.Scheduler.HeartbeatPeriod.Std())
	faultTick := time.NewTicker(cfg.Scheduler.FaultCheckPeriod.Std())
	defer chassisTick.Stop()
	defer detailTick.Stop()
	defer heartbeatTick.Stop()
	defer faultTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case apply := <-commands:
			apply()
		case <-chassisTick.C:
			publishChassis(orch, chassisWriter)
		case <-detailTick.C:
			orch.PublishChassisDetail()
			orch.PublishChassisDetailSender()
		case <-heartbeatTick.C:
			orch.UpdateHeartbeat()
		case <-faultTick.C:
			checkCommFault(orch, monitor)
		}
	}
}

// publishChassis puts the current chassis snapshot on the chassis subject.
func publishChassis(orch *orchestrator.Orchestrator, w *telemetry.Writer) {
	chassis := orch.PublishChassis()
	if err := w.Write(chassis); err != nil {
		slog.Debug("Chassis publish failed", "subject", w.Subject(), "error", err)
	}
}

// checkCommFault runs the communication fault check and reflects the result
// into the health monitor served on /healthz.
func checkCommFault(orch *orchestrator.Orchestrator, monitor *health.Monitor) {
	faulted := orch.CheckChassisCommunicationFault()
	if monitor == nil {
		return
	}
	if faulted {
		monitor.UpdateUnhealthy("controller", "vehicle reports lost")
	} else {
		monitor.UpdateHealthy("controller", "vehicle reports current")
	}
}

// drainAndStop clears the outbound frame set, waits for the sender to report
// clear, then tears the orchestrator down.
func drainAndStop(orch *orchestrator.Orchestrator, timeout time.Duration) {
	orch.ClearSendProtocol()

	deadline := time.Now().Add(timeout)
	for !orch.IsSendProtocolClear() {
		if time.Now().After(deadline) {
			slog.Warn("Send protocol still registered at shutdown", "timeout", timeout)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	orch.Stop()
}
