// Package metrics records tool-call counters and serves them, with a health
// probe, on an optional HTTP listener.
//
// The listener never touches stdout, which carries the MCP protocol.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder holds the server's collectors on a private registry.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	errors       *prometheus.CounterVec
	degradations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	bytesOut     *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors
// registered alongside the tool metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_mcp_tool_calls_total",
				Help: "Total number of tool calls.",
			},
			[]string{"tool", "outcome"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_mcp_tool_errors_total",
				Help: "Total number of failed tool calls by error kind.",
			},
			[]string{"tool", "kind"},
		),
		degradations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_mcp_degradations_total",
				Help: "Best-effort steps that failed without failing the call.",
			},
			[]string{"tool", "stage"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_mcp_tool_duration_seconds",
				Help:    "Duration of tool calls.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		bytesOut: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_mcp_image_bytes",
				Help:    "Size of images returned to the client.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"tool"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveCall records a finished tool call.
func (r *Recorder) ObserveCall(tool, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(tool, outcome).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveError counts a failed call by error kind.
func (r *Recorder) ObserveError(tool, kind string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(tool, kind).Inc()
}

// ObserveDegradation counts a warning attached to a successful call.
func (r *Recorder) ObserveDegradation(tool, stage string) {
	if r == nil {
		return
	}
	r.degradations.WithLabelValues(tool, stage).Inc()
}

// ObserveImage records the size of a returned image.
func (r *Recorder) ObserveImage(tool string, size int) {
	if r == nil {
		return
	}
	r.bytesOut.WithLabelValues(tool).Observe(float64(size))
}
