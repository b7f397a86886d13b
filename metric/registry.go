package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/canlink/errors"
)

// Registrar defines the interface for registering component-specific metrics
// alongside the shared pipeline metrics.
type Registrar interface {
	RegisterCounter(component, name string, counter prometheus.Counter) error
	RegisterGauge(component, name string, gauge prometheus.Gauge) error
	RegisterHistogram(component, name string, histogram prometheus.Histogram) error
	Unregister(component, name string) bool
}

// Registry manages the registration and lifecycle of metrics. The pipeline
// metrics are registered at construction; components add their own through
// the Registrar methods.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	pipeline           *Pipeline
	registered         map[string]prometheus.Collector
	mu                 sync.Mutex
}

// NewRegistry creates a new metrics registry with the pipeline metrics and
// Go runtime collectors pre-registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &Registry{
		prometheusRegistry: prometheusRegistry,
		pipeline:           NewPipeline(),
		registered:         make(map[string]prometheus.Collector),
	}
	registry.registerPipeline()

	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Pipeline returns the shared pipeline metrics. Safe on a nil *Registry, in
// which case it returns a nil *Pipeline whose record methods are no-ops.
func (r *Registry) Pipeline() *Pipeline {
	if r == nil {
		return nil
	}
	return r.pipeline
}

// RegisterCounter registers a counter metric for a component
func (r *Registry) RegisterCounter(component, name string, counter prometheus.Counter) error {
	return r.register(component, name, "RegisterCounter", counter)
}

// RegisterGauge registers a gauge metric for a component
func (r *Registry) RegisterGauge(component, name string, gauge prometheus.Gauge) error {
	return r.register(component, name, "RegisterGauge", gauge)
}

// RegisterHistogram registers a histogram metric for a component
func (r *Registry) RegisterHistogram(component, name string, histogram prometheus.Histogram) error {
	return r.register(component, name, "RegisterHistogram", histogram)
}

// Unregister removes a metric from the registry
func (r *Registry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)

	collector, exists := r.registered[key]
	if !exists {
		return false
	}

	success := r.prometheusRegistry.Unregister(collector)
	if success {
		delete(r.registered, key)
	}

	return success
}

// register tracks a collector under "component.name" so the same slot cannot
// be claimed twice, then hands it to Prometheus.
func (r *Registry) register(component, name, method string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)

	if _, exists := r.registered[key]; exists {
		return errors.WrapInit(
			fmt.Errorf("metric %s already registered for component %s", name, component),
			"Registry", method, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInit(err, "Registry", method,
				fmt.Sprintf("prometheus conflict for metric %s", name))
		}
		return errors.WrapInit(err, "Registry", method, "prometheus registration")
	}

	r.registered[key] = collector
	return nil
}

// registerPipeline registers all pipeline metrics
func (r *Registry) registerPipeline() {
	r.prometheusRegistry.MustRegister(
		r.pipeline.FramesReceived,
		r.pipeline.FramesSent,
		r.pipeline.DecodeErrors,
		r.pipeline.SendErrors,
		r.pipeline.CommandUpdates,
		r.pipeline.UpdateDuration,
		r.pipeline.HeartbeatRefreshes,
		r.pipeline.LifecycleTransitions,
		r.pipeline.CommFault,
		r.pipeline.TelemetryPublished,
		r.pipeline.TelemetryErrors,
		r.pipeline.NATSConnected,
		r.pipeline.NATSReconnects,
	)
}
