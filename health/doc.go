// Package health provides thread-safe health status tracking and aggregation
// for the CAN interface pipeline.
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// # Basic Usage
//
// Creating and tracking component health:
//
//	monitor := health.NewMonitor()
//
//	monitor.UpdateHealthy("receiver", "polling can0")
//	monitor.UpdateDegraded("telemetry", "NATS reconnecting")
//	monitor.UpdateUnhealthy("controller", "chassis communication fault")
//
//	if status, exists := monitor.Get("controller"); exists && status.IsUnhealthy() {
//	    log.Println("controller faulted")
//	}
//
// # Aggregation
//
// AggregateHealth combines all monitored components into a system status
// following worst-case rules: any unhealthy component marks the system
// unhealthy; otherwise any degraded component marks it degraded.
//
//	system := monitor.AggregateHealth("canlink")
//	if system.IsUnhealthy() {
//	    // answer 503 on /healthz
//	}
//
// # Sanitization
//
// FromError converts an operational error into an unhealthy status whose
// message has URLs, file paths, IP addresses, ports, and credentials
// redacted. Device paths like /dev/can0 and broker URLs never reach health
// dashboards.
//
// The package does not return errors: health status is an observability
// output, not part of error propagation.
package health
