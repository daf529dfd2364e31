// Package metrics exposes pipeline latency and outcome counters for Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/pipeline"
)

const namespace = "voiceletter"

// Recorder owns a private registry so several recorders can coexist in tests.
type Recorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	exportsTotal  *prometheus.CounterVec
	sessionsTotal *prometheus.CounterVec
}

// New builds a recorder with Go runtime collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Latency of transcription, generation and export calls in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_total",
				Help:      "Pipeline stage calls by outcome",
			},
			[]string{"stage", "outcome"},
		),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Exports by format and outcome",
			},
			[]string{"format", "outcome"},
		),
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capture_sessions_total",
				Help:      "Capture sessions by how they ended",
			},
			[]string{"outcome"},
		),
	}
	r.registry.MustRegister(
		r.stageDuration, r.stageTotal, r.exportsTotal, r.sessionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Outcome labels an error for counters: "ok", "stale" or the taxonomy kind.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pipeline.ErrStale):
		return "stale"
	default:
		return letter.KindName(err)
	}
}

// ObserveStage records one collaborator call.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration, err error) {
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	r.stageTotal.WithLabelValues(stage, Outcome(err)).Inc()
}

// ObserveExport records one export.
func (r *Recorder) ObserveExport(format letter.Format, elapsed time.Duration, err error) {
	r.ObserveStage("export", elapsed, err)
	r.exportsTotal.WithLabelValues(string(format), Outcome(err)).Inc()
}

// CaptureSession counts a finished capture session ("stopped", "cancelled", "failed").
func (r *Recorder) CaptureSession(outcome string) {
	r.sessionsTotal.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
