// Package observability holds the prometheus collectors and gin middleware shared by the kenuts binaries.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	fetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kenuts",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kenuts",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	fetchBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kenuts",
			Subsystem: "fetch",
			Name:      "response_bytes",
			Help:      "Raw response size of successful exchanges.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
	)
	serverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kenuts",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total requests served.",
		},
		[]string{"server", "method", "framing", "status"},
	)
	serverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kenuts",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Connection handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "status"},
	)
	serverActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kenuts",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Connections currently being handled.",
		},
		[]string{"server"},
	)
	indexReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kenuts",
			Subsystem: "server",
			Name:      "index_reloads_total",
			Help:      "Index file reloads by result.",
		},
		[]string{"server", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kenuts",
			Subsystem: "admin",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			fetchRequests, fetchDuration, fetchBytes,
			serverRequests, serverDuration, serverActive, indexReloads,
			httpRequests,
		)
	})
}

// RecordFetch counts one finished fetch. outcome is "ok", "soft_malformed" or the failing stage.
func RecordFetch(outcome string, duration time.Duration, rawBytes int) {
	RegisterMetrics()
	fetchRequests.WithLabelValues(outcome).Inc()
	fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if rawBytes >= 0 {
		fetchBytes.Observe(float64(rawBytes))
	}
}

func RecordServerRequest(server, method, framing string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	serverRequests.WithLabelValues(server, method, framing, statusLabel).Inc()
	serverDuration.WithLabelValues(server, method, statusLabel).Observe(duration.Seconds())
}

// ConnectionOpened and ConnectionClosed move the active connection gauge
func ConnectionOpened(server string) {
	RegisterMetrics()
	serverActive.WithLabelValues(server).Inc()
}

func ConnectionClosed(server string) {
	RegisterMetrics()
	serverActive.WithLabelValues(server).Dec()
}

func RecordIndexReload(server string, success bool) {
	RegisterMetrics()
	indexReloads.WithLabelValues(server, strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(server, method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(server, method, path, strconv.Itoa(status)).Inc()
}
