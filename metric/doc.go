// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring the CAN interface pipeline.
//
// The package follows a three-layer design:
//
//  1. Pipeline Metrics: frame flow, command path, lifecycle, and telemetry
//     metrics shared by the pipeline components (Pipeline type)
//  2. Registry: extensible registration for component-specific metrics
//     (Registrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewRegistry()
//	monitor := health.NewMonitor()
//	server := metric.NewServer(":9100", "/metrics", registry, monitor)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
//	// Record pipeline metrics
//	pipeline := registry.Pipeline()
//	pipeline.RecordFrameReceived("can0")
//	pipeline.RecordCommandUpdate("control", "accepted")
//
// The server exposes Prometheus-formatted metrics at the configured path and
// an aggregated health check at /healthz. An unhealthy aggregate answers 503.
//
// # Pipeline Metrics
//
// All pipeline metrics use the namespace "canlink":
//
//   - canlink_frames_received_total{channel}
//   - canlink_frames_sent_total{channel}
//   - canlink_frames_decode_errors_total{channel}
//   - canlink_frames_send_errors_total{channel}
//   - canlink_commands_updates_total{kind,status}
//   - canlink_commands_update_duration_seconds{kind}
//   - canlink_commands_heartbeat_refreshes_total
//   - canlink_lifecycle_transitions_total{state}
//   - canlink_chassis_comm_fault
//   - canlink_telemetry_published_total{subject}
//   - canlink_telemetry_errors_total{subject}
//   - canlink_nats_connected
//   - canlink_nats_reconnects_total
//
// Recording methods are safe to call on a nil *Pipeline, so components accept
// an optional *Pipeline and record unconditionally:
//
//	func (r *Receiver) poll() {
//	    ...
//	    r.metrics.RecordFrameReceived(r.handle.Name()) // fine when metrics == nil
//	}
//
// # Component-Specific Metrics
//
// Components register their own metrics through the Registrar interface:
//
//	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Name: "canlink_build_info",
//	    Help: "Build information",
//	})
//	if err := registry.RegisterGauge("daemon", "build_info", gauge); err != nil {
//	    ...
//	}
//
// Registration is tracked per "component.name" pair; registering the same
// pair twice returns an error rather than panicking.
package metric
