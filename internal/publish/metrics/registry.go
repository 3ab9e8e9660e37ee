package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Publish metrics
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	batchCount      *prometheus.HistogramVec
	entryOutcomes   *prometheus.CounterVec

	// Offload metrics
	offloadTotal    *prometheus.CounterVec
	offloadDuration *prometheus.HistogramVec
	offloadBytes    *prometheus.HistogramVec

	// Destination registry metrics
	destinationLookupTotal    *prometheus.CounterVec
	destinationLookupDuration prometheus.Histogram

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topicpub_publish_total",
				Help: "Total number of publish operations",
			},
			[]string{"topic", "mode", "status"}, // mode: single, batch; status: success, error
		),

		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "topicpub_publish_duration_seconds",
				Help:    "Time spent on publish operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic", "mode"},
		),

		batchCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "topicpub_publish_batches",
				Help:    "Number of batch calls issued per publish operation",
				Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100},
			},
			[]string{"topic"},
		),

		entryOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topicpub_entry_outcomes_total",
				Help: "Per-entry publish outcomes",
			},
			[]string{"topic", "outcome"}, // outcome: success, failed
		),

		offloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topicpub_offload_total",
				Help: "Total number of payload offload attempts",
			},
			[]string{"status"}, // status: success, failed, error
		),

		offloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "topicpub_offload_duration_seconds",
				Help:    "Time spent offloading payloads to blob storage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		offloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "topicpub_offload_bytes",
				Help:    "Original payload size of offloaded entries",
				Buckets: prometheus.ExponentialBuckets(256*1024, 2, 8),
			},
			[]string{"status"},
		),

		destinationLookupTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topicpub_destination_lookup_total",
				Help: "Total number of destination-list resolutions",
			},
			[]string{"status"}, // status: success, error
		),

		destinationLookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "topicpub_destination_lookup_duration_seconds",
				Help:    "Time spent resolving the destination list",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "topicpub_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "topicpub_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.publishTotal,
		r.publishDuration,
		r.batchCount,
		r.entryOutcomes,
		r.offloadTotal,
		r.offloadDuration,
		r.offloadBytes,
		r.destinationLookupTotal,
		r.destinationLookupDuration,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordSinglePublish records a single non-batched publish operation
func (r *Registry) RecordSinglePublish(topic string, duration time.Duration, err error) {
	r.publishTotal.WithLabelValues(topic, "single", statusLabel(err)).Inc()
	r.publishDuration.WithLabelValues(topic, "single").Observe(duration.Seconds())
}

// RecordBatchPublish records a batch publish operation and its per-entry outcomes
func (r *Registry) RecordBatchPublish(topic string, batches, successes, failures int, duration time.Duration, err error) {
	r.publishTotal.WithLabelValues(topic, "batch", statusLabel(err)).Inc()
	r.publishDuration.WithLabelValues(topic, "batch").Observe(duration.Seconds())
	if err != nil {
		return
	}

	r.batchCount.WithLabelValues(topic).Observe(float64(batches))
	r.entryOutcomes.WithLabelValues(topic, "success").Add(float64(successes))
	r.entryOutcomes.WithLabelValues(topic, "failed").Add(float64(failures))
}

// RecordOffload records one payload offload attempt. status is success,
// failed (all destinations rejected) or error (systemic failure).
func (r *Registry) RecordOffload(status string, bytes int, duration time.Duration) {
	r.offloadTotal.WithLabelValues(status).Inc()
	r.offloadDuration.WithLabelValues(status).Observe(duration.Seconds())
	r.offloadBytes.WithLabelValues(status).Observe(float64(bytes))
}

// RecordDestinationLookup records a destination-list resolution
func (r *Registry) RecordDestinationLookup(duration time.Duration, err error) {
	r.destinationLookupTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		r.destinationLookupDuration.Observe(duration.Seconds())
	}
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
