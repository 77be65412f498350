package observability

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// In-process metrics for the verification service. A small registry of
// counters, gauges and histograms, exported in Prometheus text format by
// the exporter. No client library; the service owns its own primitives.
// ---------------------------------------------------------------------------

// MetricType identifies the kind of metric.
type MetricType string

const (
	MetricCounter   MetricType = "counter"
	MetricGauge     MetricType = "gauge"
	MetricHistogram MetricType = "histogram"
)

// MetricEntry is a point-in-time snapshot of one metric.
type MetricEntry struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Help      string            `json:"help"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"ts"`
}

// counterScale fixes counters at 3 decimal places so they stay lock-free
// on an atomic int64.
const counterScale = 1000

// Counter only goes up. Negative deltas are ignored.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  atomic.Int64 // value * counterScale
}

// Inc adds 1.
func (c *Counter) Inc() {
	c.value.Add(counterScale)
}

// Add adds delta; delta below zero is a no-op.
func (c *Counter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.value.Add(int64(math.Round(delta * counterScale)))
}

func (c *Counter) Value() float64 {
	return float64(c.value.Load()) / counterScale
}

func (c *Counter) Entry() MetricEntry {
	return MetricEntry{
		Name:      c.name,
		Type:      MetricCounter,
		Help:      c.help,
		Value:     c.Value(),
		Labels:    copyLabels(c.labels),
		Timestamp: time.Now(),
	}
}

// Gauge moves in both directions. Stored as float bits behind an atomic
// so readers never block writers.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	bits   atomic.Uint64
}

// Set replaces the current value.
func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Inc adds 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec subtracts 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Add adds delta, which may be negative.
func (g *Gauge) Add(delta float64) {
	for {
		old := g.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if g.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *Gauge) Entry() MetricEntry {
	return MetricEntry{
		Name:      g.name,
		Type:      MetricGauge,
		Help:      g.help,
		Value:     g.Value(),
		Labels:    copyLabels(g.labels),
		Timestamp: time.Now(),
	}
}

// Histogram buckets observations by upper bound. counts[i] is cumulative:
// the number of observations <= buckets[i].
type Histogram struct {
	name   string
	help   string
	labels map[string]string

	mu      sync.Mutex
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// Count returns how many values were observed.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the total of all observed values.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Quantile estimates the q-th percentile (q in [0,1]) by linear
// interpolation inside the bucket where the target rank lands. Returns 0
// for an empty histogram or an out-of-range q.
func (h *Histogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || q < 0 || q > 1 {
		return 0
	}

	target := q * float64(h.count)
	lowerBound := 0.0
	lowerCount := 0.0

	for i, bound := range h.buckets {
		cum := float64(h.counts[i])
		if cum >= target {
			inBucket := cum - lowerCount
			if inBucket == 0 {
				return bound
			}
			frac := (target - lowerCount) / inBucket
			return lowerBound + frac*(bound-lowerBound)
		}
		lowerBound = bound
		lowerCount = cum
	}

	if n := len(h.buckets); n > 0 {
		return h.buckets[n-1]
	}
	return 0
}

// Entry snapshots the histogram; Value carries the observation count.
func (h *Histogram) Entry() MetricEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return MetricEntry{
		Name:      h.name,
		Type:      MetricHistogram,
		Help:      h.help,
		Value:     float64(h.count),
		Labels:    copyLabels(h.labels),
		Timestamp: time.Now(),
	}
}

// BucketCounts snapshots bounds, cumulative counts, sum and count for the
// exporter.
func (h *Histogram) BucketCounts() (buckets []float64, counts []int64, sum float64, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buckets = append([]float64(nil), h.buckets...)
	counts = append([]int64(nil), h.counts...)
	return buckets, counts, h.sum, h.count
}

// Registry holds all metrics of the process. Registration is idempotent
// per name: re-registering returns the existing metric.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

func (r *Registry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: copyLabels(labels)}
	r.counters[name] = c
	return c
}

func (r *Registry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: copyLabels(labels)}
	r.gauges[name] = g
	return g
}

func (r *Registry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}

	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)

	h := &Histogram{
		name:    name,
		help:    help,
		labels:  copyLabels(labels),
		buckets: bounds,
		counts:  make([]int64, len(bounds)),
	}
	r.histograms[name] = h
	return h
}

// GetCounter returns a registered counter or nil.
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge returns a registered gauge or nil.
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram returns a registered histogram or nil.
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// AllMetrics snapshots every metric: counters, then gauges, then
// histograms, each group sorted by name.
func (r *Registry) AllMetrics() []MetricEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]MetricEntry, 0, len(r.counters)+len(r.gauges)+len(r.histograms))
	for _, name := range sortedKeys(r.counters) {
		entries = append(entries, r.counters[name].Entry())
	}
	for _, name := range sortedKeys(r.gauges) {
		entries = append(entries, r.gauges[name].Entry())
	}
	for _, name := range sortedKeys(r.histograms) {
		entries = append(entries, r.histograms[name].Entry())
	}
	return entries
}

// DefaultLatencyBuckets in milliseconds, tuned for HTTP round trips.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// SentinelMetrics builds the registry used by the verification service.
func SentinelMetrics() *Registry {
	r := NewRegistry()

	r.NewCounter("sentinel_verifications_total",
		"Total transfer verifications performed",
		map[string]string{"status": "", "network": ""})
	r.NewCounter("sentinel_verifications_blocked_total",
		"Total verifications that ended in a blocking verdict",
		map[string]string{"status": ""})
	r.NewCounter("sentinel_registry_reloads_total",
		"Total hot reloads of the threat registry",
		map[string]string{"result": ""})
	r.NewCounter("sentinel_connector_errors_total",
		"Total upstream connector failures",
		map[string]string{"connector": ""})
	r.NewCounter("sentinel_humanizer_fallbacks_total",
		"Total explanations served from the raw verdict message",
		nil)
	r.NewCounter("sentinel_alerts_published_total",
		"Total high-risk alert events published",
		nil)

	r.NewGauge("sentinel_blacklist_entries",
		"Current number of blacklist entries loaded",
		nil)
	r.NewGauge("sentinel_known_wallets",
		"Current number of wallet profiles loaded",
		nil)
	r.NewGauge("sentinel_ws_clients",
		"Connected websocket clients",
		nil)

	r.NewHistogram("sentinel_verification_latency_ms",
		"End-to-end verification latency in milliseconds",
		nil, DefaultLatencyBuckets)
	r.NewHistogram("sentinel_connector_latency_ms",
		"Upstream connector latency in milliseconds",
		nil, DefaultLatencyBuckets)

	return r
}

func copyLabels(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
