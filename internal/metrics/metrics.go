package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PaymentsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Payment initiations by gateway",
		},
		[]string{"gateway"},
	)

	PaymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_outcomes_total",
			Help: "Terminal payment transitions by gateway and status",
		},
		[]string{"gateway", "status"},
	)

	CallbacksReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Inbound gateway callbacks, any provider",
		},
	)

	ReconcileQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_queue_depth",
			Help: "Pending transactions queued for re-verification",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(PaymentsInitiated)
	prometheus.MustRegister(PaymentOutcomes)
	prometheus.MustRegister(CallbacksReceived)
	prometheus.MustRegister(ReconcileQueueDepth)
}
