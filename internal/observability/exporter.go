package observability

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter renders a Registry in the Prometheus text exposition
// format. Mounted at /metrics on the API server.
type PrometheusExporter struct {
	registry *Registry
}

func NewPrometheusExporter(registry *Registry) *PrometheusExporter {
	return &PrometheusExporter{registry: registry}
}

// ServeHTTP implements http.Handler.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(e.Format()))
}

// Format renders every registered metric, each preceded by its HELP and
// TYPE lines, names sorted for a stable scrape.
func (e *PrometheusExporter) Format() string {
	var b strings.Builder

	e.registry.mu.RLock()
	defer e.registry.mu.RUnlock()

	for _, name := range sortedKeys(e.registry.counters) {
		c := e.registry.counters[name]
		writeHeader(&b, c.name, c.help, "counter")
		fmt.Fprintf(&b, "%s%s %s\n\n", c.name, formatLabels(c.labels), renderValue(c.Value()))
	}

	for _, name := range sortedKeys(e.registry.gauges) {
		g := e.registry.gauges[name]
		writeHeader(&b, g.name, g.help, "gauge")
		fmt.Fprintf(&b, "%s%s %s\n\n", g.name, formatLabels(g.labels), renderValue(g.Value()))
	}

	for _, name := range sortedKeys(e.registry.histograms) {
		e.writeHistogram(&b, e.registry.histograms[name])
	}

	return b.String()
}

// writeHistogram renders cumulative buckets, the +Inf bucket, _sum and
// _count, per the exposition format.
func (e *PrometheusExporter) writeHistogram(b *strings.Builder, h *Histogram) {
	buckets, counts, sum, count := h.BucketCounts()
	writeHeader(b, h.name, h.help, "histogram")

	for i, bound := range buckets {
		fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, withLabel(h.labels, "le", renderValue(bound)), counts[i])
	}
	fmt.Fprintf(b, "%s_bucket%s %d\n", h.name, withLabel(h.labels, "le", "+Inf"), count)

	lbl := formatLabels(h.labels)
	fmt.Fprintf(b, "%s_sum%s %s\n", h.name, lbl, renderValue(sum))
	fmt.Fprintf(b, "%s_count%s %d\n\n", h.name, lbl, count)
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

// formatLabels renders {k1="v1",k2="v2"} with keys sorted; empty input
// renders nothing.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// withLabel renders the base labels plus one extra pair.
func withLabel(base map[string]string, key, value string) string {
	merged := make(map[string]string, len(base)+1)
	for k, v := range base {
		merged[k] = v
	}
	merged[key] = value
	return formatLabels(merged)
}

// renderValue prints a sample value; infinities and NaN use the spellings
// the exposition format expects.
func renderValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}
