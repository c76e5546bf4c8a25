// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcription_engine"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter
	AudioBytesReceived prometheus.Counter

	GenerationsTotal  *prometheus.CounterVec
	GenerationLatency prometheus.Histogram
	ProviderFailures  *prometheus.CounterVec
	ProviderSkipped   *prometheus.CounterVec

	ObserversConnected prometheus.Gauge
	BroadcastsTotal    prometheus.Counter
	BroadcastDrops     prometheus.Counter
}

// Default is the process-wide metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcript events received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcript events received",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total audio bytes forwarded to the transcriber",
		}),
		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total generation attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "End-to-end latency of a generation including failover",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}),
		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Total provider call failures",
		}, []string{"provider"}),
		ProviderSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_skipped_total",
			Help:      "Total times a provider was skipped by the circuit breaker",
		}, []string{"provider"}),
		ObserversConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers_connected",
			Help:      "Number of currently connected observers",
		}),
		BroadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total envelopes broadcast to observers",
		}),
		BroadcastDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_drops_total",
			Help:      "Total observers dropped for slow or failed delivery",
		}),
	}
}
