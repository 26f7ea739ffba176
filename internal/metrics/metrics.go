// Package metrics exposes Prometheus collectors for ingestion and the HTTP
// API on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexum"

// Metrics holds all the collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	RowsIngestedTotal *prometheus.CounterVec
	RowErrorsTotal    prometheus.Counter
	UploadsTotal      *prometheus.CounterVec
	FilesDeleted      prometheus.Counter
	StoreEntries      prometheus.Gauge
	PublishErrors     prometheus.Counter
	ArchiveDropped    prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	RequestDurations  *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsIngestedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Log entries appended to the store, by source file.",
		}, []string{"source"}),
		RowErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_errors_total",
			Help:      "Malformed CSV rows skipped.",
		}),
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Completed uploads by outcome.",
		}, []string{"outcome"}),
		FilesDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_deleted_total",
			Help:      "Uploaded files deleted through the API.",
		}),
		StoreEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_entries",
			Help:      "Log entries currently held in memory.",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Activity events that failed to publish.",
		}),
		ArchiveDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Archive writes dropped because the buffer was full or closed.",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		RequestDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RowsIngested, RowErrors, UploadFinished, FileDeleted and StoreSize
// satisfy ingest.Recorder.

func (m *Metrics) RowsIngested(source string, n int) {
	m.RowsIngestedTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) RowErrors(n int) {
	m.RowErrorsTotal.Add(float64(n))
}

func (m *Metrics) UploadFinished(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.UploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FileDeleted() { m.FilesDeleted.Inc() }

func (m *Metrics) StoreSize(n int) { m.StoreEntries.Set(float64(n)) }

// PublishFailed counts a failed event publish.
func (m *Metrics) PublishFailed() { m.PublishErrors.Inc() }

// ArchiveDrop counts a dropped archive write.
func (m *Metrics) ArchiveDrop() { m.ArchiveDropped.Inc() }

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDurations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
