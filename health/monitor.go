package health

import (
	"sync"
	"time"
)

// Monitor tracks the last reported status of each pipeline component.
// Components keep the order of their first report, so aggregate output stays
// stable across scrapes instead of following map iteration.
type Monitor struct {
	mu       sync.RWMutex
	order    []string
	statuses map[string]Status
}

// NewMonitor returns an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update records the status for one component. The status's component name
// is forced to name; a zero timestamp is stamped with the current time.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	if _, seen := m.statuses[name]; !seen {
		m.order = append(m.order, name)
	}
	m.statuses[name] = status
}

// UpdateHealthy records a healthy status for a component.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy records an unhealthy status for a component.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded records a degraded status for a component.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get returns the last reported status for a component.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a copy of every component's last status.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		out[name] = status
	}
	return out
}

// Remove forgets a component. A component that reports again after removal
// rejoins at the end of the order.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.statuses[name]; !seen {
		return
	}
	delete(m.statuses, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// AggregateHealth folds every component's status into one system-level
// status, sub-statuses in first-report order.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]Status, 0, len(m.order))
	for _, name := range m.order {
		subs = append(subs, m.statuses[name])
	}
	return Aggregate(systemName, subs)
}
