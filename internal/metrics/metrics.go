// Package metrics holds the Prometheus collectors for checkout.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout records order placement outcomes. A nil *Checkout is a no-op.
type Checkout struct {
	placed   prometheus.Counter
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCheckout creates the checkout collectors and registers them on reg.
func NewCheckout(reg prometheus.Registerer) (*Checkout, error) {
	m := &Checkout{
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_placed_total",
			Help:      "Orders committed by checkout.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_failed_total",
			Help:      "Checkout attempts rolled back, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Time spent placing an order, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.placed, m.failed, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Placed records a committed order.
func (m *Checkout) Placed(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.placed.Inc()
	m.duration.WithLabelValues("placed").Observe(elapsed.Seconds())
}

// Failed records a rejected or rolled back checkout.
func (m *Checkout) Failed(reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(reason).Inc()
	m.duration.WithLabelValues("failed").Observe(elapsed.Seconds())
}
