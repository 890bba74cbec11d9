package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "matchbook"

type Metrics struct {
	accepted      *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	trades        *prometheus.CounterVec
	tradedQty     *prometheus.CounterVec
	cancels       *prometheus.CounterVec
	triggers      *prometheus.CounterVec
	commandErrors *prometheus.CounterVec
}

// NewMetrics registers the engine counters on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		accepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_accepted_total",
			Help: "Orders accepted by the engine.",
		}, []string{"instrument"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_rejected_total",
			Help: "Orders rejected at validation, by result code.",
		}, []string{"instrument", "code"}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "trades_total",
			Help: "Trades executed.",
		}, []string{"instrument"}),
		tradedQty: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "traded_quantity_total",
			Help: "Sum of traded quantity.",
		}, []string{"instrument"}),
		cancels: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_cancelled_total",
			Help: "Orders cancelled, by reason.",
		}, []string{"instrument", "reason"}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stops_triggered_total",
			Help: "Stop orders triggered by a market price move.",
		}, []string{"instrument"}),
		commandErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "command_errors_total",
			Help: "Commands that failed with an error or a recovered panic.",
		}, []string{"instrument"}),
	}
}
