package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "wire",
			Name:      "frames_read_total",
			Help:      "Frames read from the gateway.",
		},
		[]string{"kind"},
	)
	framesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "wire",
			Name:      "frames_written_total",
			Help:      "Frames written to the gateway.",
		},
		[]string{"kind"},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "wire",
			Name:      "frames_dropped_total",
			Help:      "Incoming frames dropped for lack of a route.",
		},
		[]string{"kind"},
	)
	bytesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "wire",
			Name:      "bytes_read_total",
			Help:      "Payload bytes read from the gateway.",
		},
	)
	bytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "wire",
			Name:      "bytes_written_total",
			Help:      "Payload bytes written to the gateway.",
		},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatewire",
			Subsystem: "session",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts after socket loss.",
		},
	)
	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gatewire",
			Subsystem: "session",
			Name:      "active_subscriptions",
			Help:      "Request-id channels currently registered.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesRead, framesWritten, framesDropped,
			bytesRead, bytesWritten,
			reconnects, activeSubscriptions,
		)
	})
}

func RecordFrameRead(kind string, n int) {
	RegisterMetrics()
	framesRead.WithLabelValues(kind).Inc()
	bytesRead.Add(float64(n))
}

func RecordFrameWritten(kind string, n int) {
	RegisterMetrics()
	framesWritten.WithLabelValues(kind).Inc()
	bytesWritten.Add(float64(n))
}

func RecordFrameDropped(kind string) {
	RegisterMetrics()
	framesDropped.WithLabelValues(kind).Inc()
}

func RecordReconnectAttempt() {
	RegisterMetrics()
	reconnects.Inc()
}

func SetActiveSubscriptions(n int) {
	RegisterMetrics()
	activeSubscriptions.Set(float64(n))
}
