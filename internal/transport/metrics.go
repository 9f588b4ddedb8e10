// Copyright 2026 The Guidrive Authors
//
// In-process metrics, exported in Prometheus text format

package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MetricsRegistry collects request counters, a latency histogram and an SSE
// connection gauge for the MCP server. It is self-contained: the /metrics
// endpoint writes the registry out in Prometheus text exposition format, so
// no client library or push infrastructure is involved.
type MetricsRegistry struct {
	mu sync.Mutex

	// requests: tool+status label combo -> count
	requests map[string]uint64

	// sseEvents: total SSE events broadcast
	sseEvents uint64

	// sseConnections: currently connected SSE clients
	sseConnections float64

	// latency histogram per tool
	latency map[string]*latencyHist
}

// latencyBuckets are the histogram upper bounds in seconds. GUI automation
// calls are slow, so the tail extends to 30s.
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type latencyHist struct {
	counts []uint64 // per-bucket, final slot is +Inf
	sum    float64
	total  uint64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		requests: make(map[string]uint64),
		latency:  make(map[string]*latencyHist),
	}
}

// RecordRequest records one tool invocation with its outcome and duration.
func (m *MetricsRegistry) RecordRequest(tool, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[fmt.Sprintf(`tool=%q,status=%q`, tool, status)]++

	h, ok := m.latency[tool]
	if !ok {
		h = &latencyHist{counts: make([]uint64, len(latencyBuckets)+1)}
		m.latency[tool] = h
	}
	secs := duration.Seconds()
	h.sum += secs
	h.total++
	for i, bound := range latencyBuckets {
		if secs <= bound {
			h.counts[i]++
			return
		}
	}
	h.counts[len(latencyBuckets)]++
}

// RecordSSEEvent counts one broadcast SSE event.
func (m *MetricsRegistry) RecordSSEEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sseEvents++
}

// SetSSEConnections records the current number of connected SSE clients.
func (m *MetricsRegistry) SetSSEConnections(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sseConnections = float64(n)
}

// WritePrometheus writes the registry in Prometheus text format. Output is
// sorted for deterministic scraping and tests.
func (m *MetricsRegistry) WritePrometheus(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := fmt.Fprintln(w, "# TYPE mcp_requests_total counter"); err != nil {
		return err
	}
	for _, label := range sortedKeys(m.requests) {
		if _, err := fmt.Fprintf(w, "mcp_requests_total{%s} %d\n", label, m.requests[label]); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "# TYPE mcp_sse_events_sent_total counter\nmcp_sse_events_sent_total %d\n", m.sseEvents); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE mcp_sse_connections_active gauge\nmcp_sse_connections_active %g\n", m.sseConnections); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "# TYPE mcp_request_duration_seconds histogram"); err != nil {
		return err
	}
	for _, tool := range sortedHistKeys(m.latency) {
		h := m.latency[tool]
		var cumulative uint64
		for i, bound := range latencyBuckets {
			cumulative += h.counts[i]
			if _, err := fmt.Fprintf(w, "mcp_request_duration_seconds_bucket{tool=%q,le=\"%g\"} %d\n", tool, bound, cumulative); err != nil {
				return err
			}
		}
		cumulative += h.counts[len(latencyBuckets)]
		if _, err := fmt.Fprintf(w, "mcp_request_duration_seconds_bucket{tool=%q,le=\"+Inf\"} %d\n", tool, cumulative); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "mcp_request_duration_seconds_sum{tool=%q} %g\n", tool, h.sum); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "mcp_request_duration_seconds_count{tool=%q} %d\n", tool, h.total); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedHistKeys(m map[string]*latencyHist) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
