package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Basics(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("checks_total", "checks performed", nil)

	assert.Equal(t, 0.0, c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, 2.0, c.Value())

	c.Add(1.5)
	assert.Equal(t, 3.5, c.Value())

	c.Add(0.001)
	assert.InDelta(t, 3.501, c.Value(), 0.0001)

	// Counters never go down.
	c.Add(-100)
	assert.InDelta(t, 3.501, c.Value(), 0.0001)

	entry := c.Entry()
	assert.Equal(t, "checks_total", entry.Name)
	assert.Equal(t, MetricCounter, entry.Type)
	assert.Equal(t, "checks performed", entry.Help)
	assert.InDelta(t, 3.501, entry.Value, 0.0001)
}

func TestCounter_Concurrent(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("par_total", "", nil)

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(n), c.Value())
}

func TestGauge_Basics(t *testing.T) {
	r := NewRegistry()
	g := r.NewGauge("clients", "connected clients", nil)

	assert.Equal(t, 0.0, g.Value())

	g.Set(12.5)
	assert.Equal(t, 12.5, g.Value())

	g.Inc()
	g.Inc()
	assert.Equal(t, 14.5, g.Value())

	g.Dec()
	assert.Equal(t, 13.5, g.Value())

	g.Add(-20)
	assert.Equal(t, -6.5, g.Value())

	g.Set(0)
	assert.Equal(t, 0.0, g.Value())

	entry := g.Entry()
	assert.Equal(t, "clients", entry.Name)
	assert.Equal(t, MetricGauge, entry.Type)
}

func TestGauge_Concurrent(t *testing.T) {
	r := NewRegistry()
	g := r.NewGauge("par_gauge", "", nil)

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(n * 2)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			g.Inc()
		}()
		go func() {
			defer wg.Done()
			g.Dec()
		}()
	}
	wg.Wait()

	// Paired increments and decrements cancel out.
	assert.Equal(t, 0.0, g.Value())
}

func TestHistogram_Observe(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("latency_ms", "latency", nil, []float64{10, 25, 50, 100})

	for _, v := range []float64{5, 15, 30, 75, 200} {
		h.Observe(v)
	}

	assert.Equal(t, int64(5), h.Count())
	assert.InDelta(t, 325.0, h.Sum(), 0.001)

	buckets, counts, sum, count := h.BucketCounts()
	assert.Equal(t, []float64{10, 25, 50, 100}, buckets)
	assert.Equal(t, []int64{1, 2, 3, 4}, counts) // cumulative per bound
	assert.InDelta(t, 325.0, sum, 0.001)
	assert.Equal(t, int64(5), count)

	entry := h.Entry()
	assert.Equal(t, MetricHistogram, entry.Type)
	assert.Equal(t, float64(5), entry.Value)
}

func TestHistogram_Quantile(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("q_ms", "", nil, []float64{10, 25, 50, 100, 250})

	// 100 observations: 20 at 5, 30 at 20, 20 at 40, 20 at 75, 10 at 200.
	fill := []struct {
		n int
		v float64
	}{
		{20, 5}, {30, 20}, {20, 40}, {20, 75}, {10, 200},
	}
	for _, f := range fill {
		for i := 0; i < f.n; i++ {
			h.Observe(f.v)
		}
	}
	require.Equal(t, int64(100), h.Count())

	tests := []struct {
		q      float64
		lo, hi float64
	}{
		{0.5, 10, 25},
		{0.9, 50, 100},
		{0.99, 100, 250},
	}
	for _, tt := range tests {
		got := h.Quantile(tt.q)
		assert.Truef(t, got >= tt.lo && got <= tt.hi,
			"q%.2f: expected [%g,%g], got %g", tt.q, tt.lo, tt.hi, got)
	}

	// Out-of-range q and empty histograms report zero.
	assert.Equal(t, 0.0, h.Quantile(-0.1))
	assert.Equal(t, 0.0, h.Quantile(1.5))
	empty := r.NewHistogram("empty_ms", "", nil, []float64{10, 50})
	assert.Equal(t, 0.0, empty.Quantile(0.5))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	c := r.NewCounter("c", "help", map[string]string{"env": "test"})
	g := r.NewGauge("g", "help", nil)
	h := r.NewHistogram("h", "help", nil, DefaultLatencyBuckets)

	assert.Equal(t, c, r.GetCounter("c"))
	assert.Equal(t, g, r.GetGauge("g"))
	assert.Equal(t, h, r.GetHistogram("h"))

	assert.Nil(t, r.GetCounter("missing"))
	assert.Nil(t, r.GetGauge("missing"))
	assert.Nil(t, r.GetHistogram("missing"))

	// Re-registering a name hands back the original.
	assert.Equal(t, c, r.NewCounter("c", "other help", nil))

	assert.Len(t, r.AllMetrics(), 3)
}

func TestRegistry_AllMetricsOrder(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("z_total", "z", nil)
	r.NewCounter("a_total", "a", nil)
	r.NewGauge("m_gauge", "m", nil)

	all := r.AllMetrics()
	require.Len(t, all, 3)
	assert.Equal(t, "a_total", all[0].Name)
	assert.Equal(t, "z_total", all[1].Name)
	assert.Equal(t, "m_gauge", all[2].Name)
}

func TestSentinelMetrics_AllRegistered(t *testing.T) {
	r := SentinelMetrics()

	counters := []string{
		"sentinel_verifications_total",
		"sentinel_verifications_blocked_total",
		"sentinel_registry_reloads_total",
		"sentinel_connector_errors_total",
		"sentinel_humanizer_fallbacks_total",
		"sentinel_alerts_published_total",
	}
	for _, name := range counters {
		c := r.GetCounter(name)
		require.NotNilf(t, c, "counter %s missing", name)
		assert.Equal(t, 0.0, c.Value())
	}

	gauges := []string{
		"sentinel_blacklist_entries",
		"sentinel_known_wallets",
		"sentinel_ws_clients",
	}
	for _, name := range gauges {
		g := r.GetGauge(name)
		require.NotNilf(t, g, "gauge %s missing", name)
		assert.Equal(t, 0.0, g.Value())
	}

	histograms := []string{
		"sentinel_verification_latency_ms",
		"sentinel_connector_latency_ms",
	}
	for _, name := range histograms {
		h := r.GetHistogram(name)
		require.NotNilf(t, h, "histogram %s missing", name)
		assert.Equal(t, int64(0), h.Count())
	}

	// 6 counters + 3 gauges + 2 histograms.
	assert.Len(t, r.AllMetrics(), 11)
}

// ---------------------------------------------------------------------------
// Health monitor
// ---------------------------------------------------------------------------

func healthyCheck(msg string) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy, Message: msg}
	}
}

func TestHealthMonitor_Check(t *testing.T) {
	mon := NewHealthMonitor(time.Second)
	mon.Register("clickhouse", healthyCheck("connected"))
	mon.Register("redis", healthyCheck("ok"))

	health := mon.Check(context.Background())

	assert.Equal(t, StatusHealthy, health.Status)
	assert.Len(t, health.Components, 2)
	assert.True(t, health.Uptime > 0)

	ch, ok := health.Components["clickhouse"]
	require.True(t, ok)
	assert.Equal(t, "clickhouse", ch.Name)
	assert.Equal(t, "connected", ch.Message)
	assert.False(t, ch.LastChecked.IsZero())
	assert.True(t, ch.Latency >= 0)

	comp, ok := mon.ComponentStatus("redis")
	require.True(t, ok)
	assert.Equal(t, StatusHealthy, comp.Status)

	_, ok = mon.ComponentStatus("unknown")
	assert.False(t, ok)
}

func TestHealthMonitor_WorstComponentWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ComponentStatus
		want     ComponentStatus
	}{
		{"all healthy", []ComponentStatus{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []ComponentStatus{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"one unhealthy", []ComponentStatus{StatusDegraded, StatusUnhealthy}, StatusUnhealthy},
		{"all unhealthy", []ComponentStatus{StatusUnhealthy, StatusUnhealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := NewHealthMonitor(time.Minute)
			for i, s := range tt.statuses {
				status := s
				mon.Register(string(rune('a'+i)), func(ctx context.Context) ComponentHealth {
					return ComponentHealth{Status: status}
				})
			}
			assert.Equal(t, tt.want, mon.Check(context.Background()).Status)
		})
	}
}

func TestHealthMonitor_AlertsOnTransition(t *testing.T) {
	mon := NewHealthMonitor(time.Minute)

	calls := 0
	mon.Register("flaky", func(ctx context.Context) ComponentHealth {
		calls++
		if calls == 1 {
			return ComponentHealth{Status: StatusHealthy, Message: "ok"}
		}
		return ComponentHealth{Status: StatusUnhealthy, Message: "connection lost"}
	})

	ctx := context.Background()

	// First sighting of a component alerts at its initial level.
	mon.Check(ctx)
	alert := drainAlert(t, mon.Alerts())
	assert.Equal(t, "info", alert.Level)
	assert.Equal(t, "flaky", alert.Component)

	// healthy -> unhealthy escalates to critical.
	mon.Check(ctx)
	alert = drainAlert(t, mon.Alerts())
	assert.Equal(t, "critical", alert.Level)
	assert.Contains(t, alert.Message, "connection lost")
}

func TestHealthMonitor_StartStop(t *testing.T) {
	mon := NewHealthMonitor(50 * time.Millisecond)

	var mu sync.Mutex
	probes := 0
	mon.Register("tick", func(ctx context.Context) ComponentHealth {
		mu.Lock()
		probes++
		mu.Unlock()
		return ComponentHealth{Status: StatusHealthy}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mon.Start(ctx)

	time.Sleep(200 * time.Millisecond)
	mon.Stop()

	mu.Lock()
	seen := probes
	mu.Unlock()
	assert.GreaterOrEqual(t, seen, 3, "expected several probe cycles")

	// Stop is idempotent.
	mon.Stop()
}

// ---------------------------------------------------------------------------
// Prometheus exporter
// ---------------------------------------------------------------------------

func TestPrometheusExporter_Format(t *testing.T) {
	r := NewRegistry()

	c := r.NewCounter("http_requests_total", "Total HTTP requests",
		map[string]string{"method": "GET", "status": "200"})
	c.Add(1234)

	g := r.NewGauge("temperature", "Current temperature",
		map[string]string{"location": "server_room"})
	g.Set(23.5)

	h := r.NewHistogram("request_duration_ms", "Request duration in ms",
		nil, []float64{10, 50, 100, 500})
	for _, v := range []float64{5, 25, 75, 250} {
		h.Observe(v)
	}

	out := NewPrometheusExporter(r).Format()

	assert.Contains(t, out, "# HELP http_requests_total Total HTTP requests")
	assert.Contains(t, out, "# TYPE http_requests_total counter")
	assert.Contains(t, out, `http_requests_total{method="GET",status="200"} 1234`)

	assert.Contains(t, out, "# TYPE temperature gauge")
	assert.Contains(t, out, `temperature{location="server_room"} 23.5`)

	assert.Contains(t, out, "# TYPE request_duration_ms histogram")
	assert.Contains(t, out, `request_duration_ms_bucket{le="10"} 1`)
	assert.Contains(t, out, `request_duration_ms_bucket{le="50"} 2`)
	assert.Contains(t, out, `request_duration_ms_bucket{le="100"} 3`)
	assert.Contains(t, out, `request_duration_ms_bucket{le="500"} 4`)
	assert.Contains(t, out, `request_duration_ms_bucket{le="+Inf"} 4`)
	assert.Contains(t, out, "request_duration_ms_sum 355")
	assert.Contains(t, out, "request_duration_ms_count 4")
}

func TestPrometheusExporter_EmptyRegistry(t *testing.T) {
	out := NewPrometheusExporter(NewRegistry()).Format()
	assert.Equal(t, "", out)
}

func TestPrometheusExporter_ServeHTTP(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("test_metric", "A test", nil).Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewPrometheusExporter(r).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.Contains(t, body, "# HELP test_metric A test")
	assert.Contains(t, body, "test_metric 1")
}

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "", formatLabels(nil))
	assert.Equal(t, "", formatLabels(map[string]string{}))
	assert.Equal(t, `{env="prod"}`, formatLabels(map[string]string{"env": "prod"}))
	// Keys render sorted.
	assert.Equal(t, `{a="first",m="mid",z="last"}`,
		formatLabels(map[string]string{"z": "last", "a": "first", "m": "mid"}))
}

func TestPrometheusExporter_SentinelMetrics(t *testing.T) {
	r := SentinelMetrics()
	r.GetCounter("sentinel_verifications_total").Add(42)
	r.GetGauge("sentinel_blacklist_entries").Set(3)
	r.GetHistogram("sentinel_verification_latency_ms").Observe(12.5)

	out := NewPrometheusExporter(r).Format()

	assert.Contains(t, out, "sentinel_verifications_total")
	assert.Contains(t, out, "sentinel_blacklist_entries")
	assert.Contains(t, out, "sentinel_verification_latency_ms")
	assert.Equal(t, 11, strings.Count(out, "# HELP "),
		"every registered metric exports a HELP line")
}

// drainAlert reads one alert with a timeout.
func drainAlert(t *testing.T, ch <-chan Alert) Alert {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(time.Second):
		t.Fatal("no alert received")
		return Alert{}
	}
}
