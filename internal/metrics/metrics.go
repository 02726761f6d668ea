// Package metrics provides Prometheus metrics for igmirror.
//
// Metrics live on a private registry so tests stay hermetic. A CLI run has no
// scrape endpoint, so WriteTextfile hands the registry to the node exporter's
// textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultDownloaded = "downloaded"
	ResultCached     = "cached"
)

// Metrics groups the collectors igmirror updates. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tokenOperations *prometheus.CounterVec
	tokenAge        prometheus.Gauge
	apiRequests     *prometheus.HistogramVec
	mediaItems      *prometheus.CounterVec
	bytesDownloaded prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tokenOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igmirror_token_operations_total",
				Help: "Token exchanges and refreshes by operation and result",
			},
			[]string{"operation", "result"},
		),
		tokenAge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "igmirror_token_age_seconds",
				Help: "Seconds since the stored long-lived token was issued or refreshed",
			},
		),
		apiRequests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igmirror_api_request_duration_seconds",
				Help:    "Instagram API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "result"},
		),
		mediaItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igmirror_media_items_total",
				Help: "Media items processed by cache result",
			},
			[]string{"result"},
		),
		bytesDownloaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "igmirror_media_bytes_downloaded_total",
				Help: "Total bytes written to the media cache",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordTokenOperation counts an authenticate or refresh attempt.
func (m *Metrics) RecordTokenOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.tokenOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// SetTokenAge records how old the current token is.
func (m *Metrics) SetTokenAge(age time.Duration) {
	if m == nil {
		return
	}
	m.tokenAge.Set(age.Seconds())
}

// ObserveAPIRequest records the duration of one API call.
func (m *Metrics) ObserveAPIRequest(endpoint string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, resultLabel(err)).Observe(duration.Seconds())
}

// RecordMediaItem counts one media item by cache outcome.
func (m *Metrics) RecordMediaItem(result string, bytes int64) {
	if m == nil {
		return
	}
	m.mediaItems.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.bytesDownloaded.Add(float64(bytes))
	}
}

// WriteTextfile writes the registry in the text exposition format. The write
// is atomic so a concurrent scrape never sees a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return ResultSuccess
	}
	return ResultFailure
}
