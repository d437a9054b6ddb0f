// Package metrics provides Prometheus collectors for native decoding activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rawkit"

var (
	// nativeCallsTotal counts native calls by operation and result.
	nativeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_calls_total",
			Help:      "Total number of native library calls",
		},
		[]string{"op", "result"}, // result: success, library_error, system_error, wrapper_error
	)

	sessionsOpenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of native decoding contexts allocated",
		},
	)

	sessionsReleasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_released_total",
			Help:      "Total number of native decoding contexts released",
		},
		[]string{"via"}, // via: close, cleanup
	)

	imagesAllocatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_allocated_total",
			Help:      "Total number of native image buffers allocated",
		},
	)

	imagesReleasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_released_total",
			Help:      "Total number of native image buffers released",
		},
		[]string{"via"},
	)

	// decodeDuration is a histogram of whole-file decode duration.
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Histogram of whole-file decode duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"}, // status: success, error
	)

	libraryInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_info",
			Help:      "Native library version, always 1",
		},
		[]string{"version"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		nativeCallsTotal,
		sessionsOpenedTotal,
		sessionsReleasedTotal,
		imagesAllocatedTotal,
		imagesReleasedTotal,
		decodeDuration,
		libraryInfo,
	}
)

// Release paths.
const (
	ViaClose   = "close"
	ViaCleanup = "cleanup"
)

// RecordNativeCall records the result of one native call.
func RecordNativeCall(op, result string) {
	nativeCallsTotal.WithLabelValues(op, result).Inc()
}

// RecordSessionOpened records a native context allocation.
func RecordSessionOpened() {
	sessionsOpenedTotal.Inc()
}

// RecordSessionReleased records a native context release.
func RecordSessionReleased(via string) {
	sessionsReleasedTotal.WithLabelValues(via).Inc()
}

// RecordImageAllocated records a native image buffer allocation.
func RecordImageAllocated() {
	imagesAllocatedTotal.Inc()
}

// RecordImageReleased records a native image buffer release.
func RecordImageReleased(via string) {
	imagesReleasedTotal.WithLabelValues(via).Inc()
}

// RecordDecode records the duration of a whole-file decode.
func RecordDecode(status string, durationSeconds float64) {
	decodeDuration.WithLabelValues(status).Observe(durationSeconds)
}

// SetLibraryInfo publishes the native library version.
func SetLibraryInfo(version string) {
	libraryInfo.WithLabelValues(version).Set(1)
}
