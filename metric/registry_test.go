package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T, registry *Registry) map[string]bool {
	t.Helper()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(metricFamilies))
	for _, mf := range metricFamilies {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.Pipeline())
}

func TestRegistry_NilPipelineAccess(t *testing.T) {
	var registry *Registry

	assert.Nil(t, registry.Pipeline())
}

func TestRegistry_RegisterCounter(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("receiver", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	names := gatheredNames(t, registry)
	assert.True(t, names["test_counter"],
		"counter should be registered in Prometheus registry")
}

func TestRegistry_RegisterGauge(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("sender", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_gauge"],
		"gauge should be registered in Prometheus registry")
}

func TestRegistry_RegisterHistogram(t *testing.T) {
	registry := NewRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("daemon", "test_histogram", histogram)
	require.NoError(t, err)

	histogram.Observe(1.5)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_histogram"],
		"histogram should be registered in Prometheus registry")
}

func TestRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // same help so Prometheus sees a pure duplicate
	})

	err := registry.RegisterCounter("receiver", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Same component.name key fails on our tracking.
	err = registry.RegisterCounter("receiver", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Different key, same Prometheus name fails inside Prometheus.
	err = registry.RegisterCounter("sender", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("daemon", "unregister_counter", counter)
	require.NoError(t, err)

	names := gatheredNames(t, registry)
	assert.True(t, names["unregister_counter"])

	success := registry.Unregister("daemon", "unregister_counter")
	assert.True(t, success)

	names = gatheredNames(t, registry)
	assert.False(t, names["unregister_counter"])

	// A second unregister finds nothing.
	assert.False(t, registry.Unregister("daemon", "unregister_counter"))
}

func TestRegistry_ThreadSafety(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"all concurrent counters should be registered")
}

func TestRegistrar_Interface(t *testing.T) {
	registry := NewRegistry()

	var registrar Registrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("daemon", "interface_counter", counter)
	require.NoError(t, err)
}

func TestRegistry_PipelineMetricsInitialized(t *testing.T) {
	registry := NewRegistry()

	// Vector metrics only appear in Gather() once a label combination has a
	// value, so record through the pipeline first.
	pipeline := registry.Pipeline()
	pipeline.RecordFrameReceived("can0")
	pipeline.RecordFrameSent("can0")
	pipeline.RecordDecodeError("can0")
	pipeline.RecordSendError("can0")
	pipeline.RecordCommandUpdate("control", "accepted")
	pipeline.ObserveUpdateDuration("control", 0)
	pipeline.RecordHeartbeatRefresh()
	pipeline.RecordLifecycleTransition("running")
	pipeline.RecordCommFault(false)
	pipeline.RecordTelemetryPublished("vehicle.chassis")
	pipeline.RecordTelemetryError("vehicle.chassis")
	pipeline.RecordNATSStatus(true)
	pipeline.RecordNATSReconnect()

	names := gatheredNames(t, registry)

	expected := []string{
		"canlink_frames_received_total",
		"canlink_frames_sent_total",
		"canlink_frames_decode_errors_total",
		"canlink_frames_send_errors_total",
		"canlink_commands_updates_total",
		"canlink_commands_update_duration_seconds",
		"canlink_commands_heartbeat_refreshes_total",
		"canlink_lifecycle_transitions_total",
		"canlink_chassis_comm_fault",
		"canlink_telemetry_published_total",
		"canlink_telemetry_errors_total",
		"canlink_nats_connected",
		"canlink_nats_reconnects_total",
	}

	for _, name := range expected {
		assert.True(t, names[name], "pipeline metric %s should be initialized", name)
	}
}

func TestRegistry_GoCollectorRegistered(t *testing.T) {
	registry := NewRegistry()

	names := gatheredNames(t, registry)
	assert.True(t, names["go_goroutines"], "Go runtime collector should be registered")
}
