// Package metrics exposes Prometheus counters for the registration
// workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the service.
type Metrics struct {
	RegistrationsTotal   prometheus.Counter
	RegistrationFailures *prometheus.CounterVec
	UnregistrationsTotal prometheus.Counter
	NotificationsTotal   *prometheus.CounterVec
}

// New registers the instruments with the given registerer. Pass
// prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "campusevents",
			Name:      "registrations_total",
			Help:      "Total number of successful event registrations",
		}),
		RegistrationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusevents",
			Name:      "registration_failures_total",
			Help:      "Failed registration attempts by reason",
		}, []string{"reason"}),
		UnregistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "campusevents",
			Name:      "unregistrations_total",
			Help:      "Total number of released registrations",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusevents",
			Name:      "notifications_total",
			Help:      "Notifications emitted by type",
		}, []string{"type"}),
	}
}
