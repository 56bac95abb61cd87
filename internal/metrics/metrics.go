package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	outboundEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kaneo",
			Subsystem: "sync",
			Name:      "outbound_events_total",
			Help:      "Task events dispatched to provider adapters, by outcome.",
		},
		[]string{"provider", "event", "result"},
	)
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kaneo",
			Subsystem: "sync",
			Name:      "webhook_deliveries_total",
			Help:      "Inbound webhook deliveries, by outcome.",
		},
		[]string{"provider", "event", "status"},
	)
	suppressedWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kaneo",
			Subsystem: "sync",
			Name:      "suppressed_writes_total",
			Help:      "Field writes suppressed by the loop-prevention protocol.",
		},
		[]string{"field", "reason"},
	)
	labelReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kaneo",
			Subsystem: "sync",
			Name:      "label_reconciliations_total",
			Help:      "Replace-by-prefix label reconciliations, split by whether a write was needed.",
		},
		[]string{"provider", "changed"},
	)
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kaneo",
			Subsystem: "sync",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of outbound provider REST calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)
)

// Register installs the sync engine collectors on the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			outboundEventsTotal,
			webhookDeliveriesTotal,
			suppressedWritesTotal,
			labelReconciliationsTotal,
			providerRequestDuration,
		)
	})
}

func ObserveOutboundEvent(provider, event, result string) {
	outboundEventsTotal.WithLabelValues(provider, event, result).Inc()
}

func ObserveWebhookDelivery(provider, event, status string) {
	webhookDeliveriesTotal.WithLabelValues(provider, event, status).Inc()
}

func ObserveSuppressedWrite(field, reason string) {
	suppressedWritesTotal.WithLabelValues(field, reason).Inc()
}

func ObserveLabelReconciliation(provider string, changed bool) {
	v := "false"
	if changed {
		v = "true"
	}
	labelReconciliationsTotal.WithLabelValues(provider, v).Inc()
}

func ObserveProviderRequest(provider, op string, started time.Time) {
	providerRequestDuration.WithLabelValues(provider, op).Observe(time.Since(started).Seconds())
}
