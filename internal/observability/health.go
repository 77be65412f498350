package observability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Health monitor for the verification service's collaborators: the registry
// snapshot, ClickHouse, Redis, and the upstream connectors. The /health
// endpoint reads the aggregate; alerts feed the operator channel.
// ---------------------------------------------------------------------------

// ComponentStatus is a component's health state.
type ComponentStatus string

const (
	StatusHealthy   ComponentStatus = "healthy"
	StatusDegraded  ComponentStatus = "degraded"
	StatusUnhealthy ComponentStatus = "unhealthy"
)

// severity orders statuses for aggregation; the worst component wins.
func (s ComponentStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return -1
	}
}

// HealthCheck probes one component.
type HealthCheck func(ctx context.Context) ComponentHealth

// ComponentHealth is the probe result for a single component.
type ComponentHealth struct {
	Name        string          `json:"name"`
	Status      ComponentStatus `json:"status"`
	Message     string          `json:"message,omitempty"`
	LastChecked time.Time       `json:"last_checked"`
	Latency     time.Duration   `json:"latency_ms"`
	Details     map[string]any  `json:"details,omitempty"`
}

// SystemHealth aggregates all components; Status is the worst of them.
type SystemHealth struct {
	Status     ComponentStatus            `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"ts"`
	Uptime     time.Duration              `json:"uptime"`
}

// Alert is emitted when a component changes status.
type Alert struct {
	Level     string    `json:"level"` // info|warn|critical
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

const alertBuffer = 256

// HealthMonitor probes registered components on an interval and remembers
// the latest result per component.
type HealthMonitor struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheck
	results   map[string]ComponentHealth
	startTime time.Time
	interval  time.Duration
	alertCh   chan Alert
	stopCh    chan struct{}
	stopped   sync.Once
}

// NewHealthMonitor creates a monitor probing at the given interval.
func NewHealthMonitor(interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		checks:    make(map[string]HealthCheck),
		results:   make(map[string]ComponentHealth),
		startTime: time.Now(),
		interval:  interval,
		alertCh:   make(chan Alert, alertBuffer),
		stopCh:    make(chan struct{}),
	}
}

// Register adds a named health check. Call before Start.
func (m *HealthMonitor) Register(name string, check HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Start runs the periodic probe loop, blocking until the context is
// cancelled or Stop is called. The first probe fires immediately.
func (m *HealthMonitor) Start(ctx context.Context) {
	m.probeAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

// Stop ends the periodic loop.
func (m *HealthMonitor) Stop() {
	m.stopped.Do(func() { close(m.stopCh) })
}

// Check probes every component synchronously and returns the aggregate.
// Used by the /health handler independently of the periodic loop.
func (m *HealthMonitor) Check(ctx context.Context) SystemHealth {
	m.probeAll(ctx)
	return m.aggregate()
}

// Alerts returns the read-only alert channel.
func (m *HealthMonitor) Alerts() <-chan Alert {
	return m.alertCh
}

// ComponentStatus returns the latest result for a named component.
func (m *HealthMonitor) ComponentStatus(name string) (ComponentHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.results[name]
	return h, ok
}

// probeAll runs every registered check, stores the results, and emits an
// alert for each component whose status changed (or appeared).
func (m *HealthMonitor) probeAll(ctx context.Context) {
	m.mu.RLock()
	checks := make(map[string]HealthCheck, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mu.RUnlock()

	fresh := make(map[string]ComponentHealth, len(checks))
	for name, fn := range checks {
		start := time.Now()
		result := fn(ctx)
		result.Name = name
		result.LastChecked = time.Now()
		result.Latency = time.Since(start)
		fresh[name] = result
	}

	m.mu.Lock()
	previous := m.results
	m.results = fresh
	m.mu.Unlock()

	for name, cur := range fresh {
		prev, seen := previous[name]
		if !seen || prev.Status != cur.Status {
			m.raise(name, cur)
		}
	}
}

// raise emits a transition alert without blocking; a full channel drops it.
func (m *HealthMonitor) raise(name string, h ComponentHealth) {
	level := "info"
	switch h.Status {
	case StatusUnhealthy:
		level = "critical"
		log.Warn().Str("component", name).Str("msg", h.Message).
			Msg("health: component unhealthy")
	case StatusDegraded:
		level = "warn"
	}

	msg := h.Message
	if msg == "" {
		msg = "status changed to " + string(h.Status)
	}

	select {
	case m.alertCh <- Alert{
		Level:     level,
		Component: name,
		Message:   msg,
		Timestamp: time.Now(),
	}:
	default:
	}
}

// aggregate builds a SystemHealth from the stored results.
func (m *HealthMonitor) aggregate() SystemHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	components := make(map[string]ComponentHealth, len(m.results))
	worst := StatusHealthy
	for name, h := range m.results {
		components[name] = h
		if h.Status.severity() > worst.severity() {
			worst = h.Status
		}
	}

	return SystemHealth{
		Status:     worst,
		Components: components,
		Timestamp:  time.Now(),
		Uptime:     time.Since(m.startTime),
	}
}
