// Package metrics counts translation work on a private Prometheus registry
// and exports it as a node-exporter textfile at the end of a run.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/valpere/sefer/internal/translator"
)

const namespace = "sefer"

// Chapter results.
const (
	ResultTranslated = "translated"
	ResultSkipped    = "skipped"
	ResultFailed     = "failed"
	ResultOverloaded = "overloaded"
)

type Metrics struct {
	registry *prometheus.Registry

	passages  prometheus.Counter
	failures  *prometheus.CounterVec
	chapters  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passages_translated_total",
			Help:      "Passages translated successfully.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed generation calls by error kind.",
		}, []string{"provider", "kind"}),
		chapters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_total",
			Help:      "Chapters processed by result.",
		}, []string{"result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of generation calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),
	}
	m.registry.MustRegister(m.passages, m.failures, m.chapters, m.durations)
	return m
}

// Registry exposes the collectors, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PassageTranslated counts one translated passage.
func (m *Metrics) PassageTranslated() {
	m.passages.Inc()
}

// Chapter counts a processed chapter with one of the Result constants.
func (m *Metrics) Chapter(result string) {
	m.chapters.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Instrument wraps gen so every call is timed and failures are counted by kind.
func (m *Metrics) Instrument(gen translator.Generator) translator.Generator {
	return &instrumented{gen: gen, m: m}
}

type instrumented struct {
	gen translator.Generator
	m   *Metrics
}

func (g *instrumented) Name() string {
	return g.gen.Name()
}

func (g *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.gen.Generate(ctx, prompt)
	g.m.durations.WithLabelValues(g.gen.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		g.m.failures.WithLabelValues(g.gen.Name(), translator.KindOf(err).String()).Inc()
	}
	return text, err
}
