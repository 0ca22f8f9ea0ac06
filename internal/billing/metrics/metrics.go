// Package metrics exposes prometheus counters for payment processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment orchestration path.
type Metrics struct {
	Processed       prometheus.Counter
	UnknownProducts prometheus.Counter
	DuplicateOrders prometheus.Counter
	Unresolved      prometheus.Counter
	AutoIssued      prometheus.Counter
}

// New creates a Metrics instance with all billing metrics registered.
func New() *Metrics {
	return &Metrics{
		Processed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_billing_payments_processed_total",
			Help: "Total payment events that activated a subscription",
		}),
		UnknownProducts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_billing_unknown_products_total",
			Help: "Total payment events ignored for an unrecognized product",
		}),
		DuplicateOrders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_billing_duplicate_orders_total",
			Help: "Total payment events dropped as duplicate order IDs",
		}),
		Unresolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_billing_unresolved_payers_total",
			Help: "Total payment events whose payer could not be resolved",
		}),
		AutoIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_billing_certificates_auto_issued_total",
			Help: "Total certificates issued automatically after payment",
		}),
	}
}
