// Package metrics exposes Prometheus counters for orders and balance lookups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the ledger and API report to.
type Recorder interface {
	OrderPlaced(amount int64)
	OrderRejected(reason string)
	OrderFailed()
	BalanceLookup(known bool)
}

// Collector is the Prometheus backed Recorder.
type Collector struct {
	ordersPlaced   prometheus.Counter
	ordersRejected *prometheus.CounterVec
	ordersFailed   prometheus.Counter
	amountCharged  prometheus.Counter
	balanceLookups *prometheus.CounterVec
}

// NewCollector registers the counters with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tap_orders_placed_total",
			Help: "Orders persisted and paid.",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tap_orders_rejected_total",
			Help: "Orders refused by validation, by reason.",
		}, []string{"reason"}),
		ordersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tap_orders_failed_total",
			Help: "Orders that failed in the store.",
		}),
		amountCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tap_amount_charged_cents_total",
			Help: "Sum of order totals charged to balances.",
		}),
		balanceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tap_balance_lookups_total",
			Help: "Remote balance lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.ordersPlaced,
		c.ordersRejected,
		c.ordersFailed,
		c.amountCharged,
		c.balanceLookups,
	)
	return c
}

// OrderPlaced counts a paid order.
func (c *Collector) OrderPlaced(amount int64) {
	c.ordersPlaced.Inc()
	if amount > 0 {
		c.amountCharged.Add(float64(amount))
	}
}

// OrderRejected counts a validation failure.
func (c *Collector) OrderRejected(reason string) {
	c.ordersRejected.WithLabelValues(reason).Inc()
}

// OrderFailed counts a store failure.
func (c *Collector) OrderFailed() {
	c.ordersFailed.Inc()
}

// BalanceLookup counts a balance lookup.
func (c *Collector) BalanceLookup(known bool) {
	outcome := "unknown"
	if known {
		outcome = "known"
	}
	c.balanceLookups.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) OrderPlaced(int64)    {}
func (Nop) OrderRejected(string) {}
func (Nop) OrderFailed()         {}
func (Nop) BalanceLookup(bool)   {}
