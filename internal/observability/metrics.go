// Package observability exposes Prometheus metrics for the key pool,
// the call orchestrator, and the transcript store.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	keyPoolActive   prometheus.Gauge
	keyPoolFailed   prometheus.Gauge
	keyIssuedTotal  prometheus.Counter
	keyFailureTotal prometheus.Counter
	poolExhausted   prometheus.Counter
	poolResetsTotal *prometheus.CounterVec

	callAttemptTotal    *prometheus.CounterVec
	callAttemptDuration *prometheus.HistogramVec
	retriesExhausted    *prometheus.CounterVec

	transcriptAppendDuration prometheus.Histogram
	transcriptLoadDuration   prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			keyPoolActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "keypool_active_keys",
					Help: "Keys currently eligible for rotation.",
				},
			),
			keyPoolFailed: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "keypool_failed_keys",
					Help: "Keys currently in the failure registry.",
				},
			),
			keyIssuedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "keypool_issued_total",
					Help: "Total keys issued to callers.",
				},
			),
			keyFailureTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "keypool_failure_total",
					Help: "Total keys marked failed.",
				},
			),
			poolExhausted: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "keypool_exhausted_total",
					Help: "Total key requests denied because every key had failed.",
				},
			),
			poolResetsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "keypool_resets_total",
					Help: "Total pool resets by trigger (daily, forced).",
				},
				[]string{"trigger"},
			),
			callAttemptTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "call_attempt_total",
					Help: "Total provider call attempts by provider and outcome.",
				},
				[]string{"provider", "outcome"},
			),
			callAttemptDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "call_attempt_duration_seconds",
					Help:    "Provider call attempt duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			retriesExhausted: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "call_retries_exhausted_total",
					Help: "Total logical calls that ran out of retry attempts.",
				},
				[]string{"provider"},
			),
			transcriptAppendDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "transcript_append_duration_seconds",
					Help:    "Transcript turn append duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			transcriptLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "transcript_load_duration_seconds",
					Help:    "Transcript load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.keyPoolActive,
			m.keyPoolFailed,
			m.keyIssuedTotal,
			m.keyFailureTotal,
			m.poolExhausted,
			m.poolResetsTotal,
			m.callAttemptTotal,
			m.callAttemptDuration,
			m.retriesExhausted,
			m.transcriptAppendDuration,
			m.transcriptLoadDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetKeyPoolState(active, failed int) {
	m := getMetrics()
	m.keyPoolActive.Set(float64(active))
	m.keyPoolFailed.Set(float64(failed))
}

func RecordKeyIssued() {
	getMetrics().keyIssuedTotal.Inc()
}

func RecordKeyFailure() {
	getMetrics().keyFailureTotal.Inc()
}

func RecordPoolExhausted() {
	getMetrics().poolExhausted.Inc()
}

func RecordPoolReset(trigger string) {
	getMetrics().poolResetsTotal.WithLabelValues(trigger).Inc()
}

func RecordCallAttempt(provider, outcome string, duration time.Duration) {
	m := getMetrics()
	m.callAttemptTotal.WithLabelValues(provider, outcome).Inc()
	m.callAttemptDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordRetriesExhausted(provider string) {
	getMetrics().retriesExhausted.WithLabelValues(provider).Inc()
}

func RecordTranscriptAppend(duration time.Duration) {
	getMetrics().transcriptAppendDuration.Observe(duration.Seconds())
}

func RecordTranscriptLoad(duration time.Duration) {
	getMetrics().transcriptLoadDuration.Observe(duration.Seconds())
}
