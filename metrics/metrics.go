// Package metrics exposes the replay engine's Prometheus metrics,
// served by the API server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	emittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_emitted_total",
			Help: "Records published, by topic",
		},
		[]string{"topic"},
	)

	droppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_dropped_total",
			Help: "Records dropped, by reason (encode|publish)",
		},
		[]string{"reason"},
	)

	bufferDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "replay_buffer_depth",
			Help: "Current records buffered between loader and pacer",
		},
	)

	virtualLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "replay_virtual_lag_seconds",
			Help: "Gap between virtual time and the newest emitted record",
		},
	)

	publishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_publish_retries_total",
			Help: "Broker publish retry attempts",
		},
	)

	preheatKeys = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_preheat_keys_total",
			Help: "Keys written to the K/V store during preheat, by task",
		},
		[]string{"task"},
	)
)

func init() {
	prometheus.MustRegister(emittedTotal, droppedTotal, bufferDepth)
	prometheus.MustRegister(virtualLag, publishRetries, preheatKeys)
}

func IncEmitted(topic string)           { emittedTotal.WithLabelValues(topic).Inc() }
func IncDropped(reason string)          { droppedTotal.WithLabelValues(reason).Inc() }
func SetBufferDepth(n int)              { bufferDepth.Set(float64(n)) }
func SetVirtualLag(seconds float64)     { virtualLag.Set(seconds) }
func IncPublishRetry()                  { publishRetries.Inc() }
func AddPreheatKeys(task string, n int) { preheatKeys.WithLabelValues(task).Add(float64(n)) }
