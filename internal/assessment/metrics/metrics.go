// Package metrics exposes prometheus counters for the assessment module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for assessment intake.
type Metrics struct {
	Saves       prometheus.Counter
	Submissions prometheus.Counter
}

// New creates a Metrics instance with all assessment metrics registered.
func New() *Metrics {
	return &Metrics{
		Saves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_assessment_saves_total",
			Help: "Total draft answer saves, including the creating first save",
		}),
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_assessment_submissions_total",
			Help: "Total completed assessment submissions",
		}),
	}
}
