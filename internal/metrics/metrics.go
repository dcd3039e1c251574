// Package metrics holds the Prometheus collectors for the publish, delete and
// rollback pipelines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline names used as label values.
const (
	PipelinePublish  = "publish"
	PipelineDelete   = "delete"
	PipelineRollback = "rollback"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	PipelineRunsTotal   *prometheus.CounterVec
	PipelineDuration    *prometheus.HistogramVec
	IngestionPollsTotal *prometheus.CounterVec
	registry            *prometheus.Registry
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		PipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rls_pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome status",
			},
			[]string{"pipeline", "status"},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rls_pipeline_duration_seconds",
				Help:    "Pipeline wall-clock duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"pipeline"},
		),
		IngestionPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rls_ingestion_polls_total",
				Help: "Total number of ingestion status polls by reported status",
			},
			[]string{"status"},
		),
		registry: registry,
	}
	registry.MustRegister(m.PipelineRunsTotal, m.PipelineDuration, m.IngestionPollsTotal)
	return m
}

// ObservePipeline records one finished pipeline run.
func (m *Metrics) ObservePipeline(pipeline string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(pipeline, strconv.Itoa(status)).Inc()
	m.PipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// ObservePoll records one ingestion status check.
func (m *Metrics) ObservePoll(status string) {
	if m == nil {
		return
	}
	m.IngestionPollsTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
