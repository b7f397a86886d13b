package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline contains the pipeline-level metrics shared by the receiver,
// sender, orchestrator, and telemetry client. Recording methods are safe to
// call on a nil *Pipeline so components can treat metrics as optional.
type Pipeline struct {
	// Frame flow metrics
	FramesReceived *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec
	SendErrors     *prometheus.CounterVec

	// Command path metrics
	CommandUpdates     *prometheus.CounterVec
	UpdateDuration     *prometheus.HistogramVec
	HeartbeatRefreshes prometheus.Counter

	// Lifecycle and fault metrics
	LifecycleTransitions *prometheus.CounterVec
	CommFault            prometheus.Gauge

	// Telemetry metrics
	TelemetryPublished *prometheus.CounterVec
	TelemetryErrors    *prometheus.CounterVec
	NATSConnected      prometheus.Gauge
	NATSReconnects     prometheus.Counter
}

// NewPipeline creates a new Pipeline instance with all pipeline metrics
func NewPipeline() *Pipeline {
	return &Pipeline{
		// Frame flow metrics
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "frames",
				Name:      "received_total",
				Help:      "Total number of frames received from the bus",
			},
			[]string{"channel"},
		),

		FramesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "frames",
				Name:      "sent_total",
				Help:      "Total number of frames written to the bus",
			},
			[]string{"channel"},
		),

		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "frames",
				Name:      "decode_errors_total",
				Help:      "Total number of received frames that failed to decode",
			},
			[]string{"channel"},
		),

		SendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "frames",
				Name:      "send_errors_total",
				Help:      "Total number of frames that failed to transmit",
			},
			[]string{"channel"},
		),

		CommandUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "commands",
				Name:      "updates_total",
				Help:      "Total number of command updates by kind and status",
			},
			[]string{"kind", "status"},
		),

		UpdateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "canlink",
				Subsystem: "commands",
				Name:      "update_duration_seconds",
				Help:      "Command update duration in seconds",
				// Command updates run at 50-100Hz; buckets resolve
				// sub-millisecond work.
				Buckets: []float64{
					.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1,
				},
			},
			[]string{"kind"},
		),

		HeartbeatRefreshes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "commands",
				Name:      "heartbeat_refreshes_total",
				Help:      "Total number of heartbeat refreshes",
			},
		),

		LifecycleTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Total number of lifecycle state transitions",
			},
			[]string{"state"},
		),

		CommFault: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "canlink",
				Subsystem: "chassis",
				Name:      "comm_fault",
				Help:      "Chassis communication fault status (0=ok, 1=faulted)",
			},
		),

		// Telemetry metrics
		TelemetryPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "telemetry",
				Name:      "published_total",
				Help:      "Total number of telemetry envelopes published",
			},
			[]string{"subject"},
		),

		TelemetryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "telemetry",
				Name:      "errors_total",
				Help:      "Total number of telemetry publish failures",
			},
			[]string{"subject"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "canlink",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "canlink",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordFrameReceived increments the received frame counter
func (p *Pipeline) RecordFrameReceived(channel string) {
	if p == nil {
		return
	}
	p.FramesReceived.WithLabelValues(channel).Inc()
}

// RecordFrameSent increments the sent frame counter
func (p *Pipeline) RecordFrameSent(channel string) {
	if p == nil {
		return
	}
	p.FramesSent.WithLabelValues(channel).Inc()
}

// RecordDecodeError increments the decode error counter
func (p *Pipeline) RecordDecodeError(channel string) {
	if p == nil {
		return
	}
	p.DecodeErrors.WithLabelValues(channel).Inc()
}

// RecordSendError increments the transmit error counter
func (p *Pipeline) RecordSendError(channel string) {
	if p == nil {
		return
	}
	p.SendErrors.WithLabelValues(channel).Inc()
}

// RecordCommandUpdate increments the command update counter. Kind is the
// command flavor ("control" or "chassis"), status is "accepted" or
// "rejected".
func (p *Pipeline) RecordCommandUpdate(kind, status string) {
	if p == nil {
		return
	}
	p.CommandUpdates.WithLabelValues(kind, status).Inc()
}

// ObserveUpdateDuration records the time spent applying a command update
func (p *Pipeline) ObserveUpdateDuration(kind string, duration time.Duration) {
	if p == nil {
		return
	}
	p.UpdateDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordHeartbeatRefresh increments the heartbeat refresh counter
func (p *Pipeline) RecordHeartbeatRefresh() {
	if p == nil {
		return
	}
	p.HeartbeatRefreshes.Inc()
}

// RecordLifecycleTransition increments the transition counter for a state
func (p *Pipeline) RecordLifecycleTransition(state string) {
	if p == nil {
		return
	}
	p.LifecycleTransitions.WithLabelValues(state).Inc()
}

// RecordCommFault updates the chassis communication fault gauge
func (p *Pipeline) RecordCommFault(faulted bool) {
	if p == nil {
		return
	}
	value := 0.0
	if faulted {
		value = 1.0
	}
	p.CommFault.Set(value)
}

// RecordTelemetryPublished increments the published envelope counter
func (p *Pipeline) RecordTelemetryPublished(subject string) {
	if p == nil {
		return
	}
	p.TelemetryPublished.WithLabelValues(subject).Inc()
}

// RecordTelemetryError increments the telemetry failure counter
func (p *Pipeline) RecordTelemetryError(subject string) {
	if p == nil {
		return
	}
	p.TelemetryErrors.WithLabelValues(subject).Inc()
}

// RecordNATSStatus updates the NATS connection gauge
func (p *Pipeline) RecordNATSStatus(connected bool) {
	if p == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	p.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter
func (p *Pipeline) RecordNATSReconnect() {
	if p == nil {
		return
	}
	p.NATSReconnects.Inc()
}
