package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heart_bus_events_total",
		Help: "Total number of events emitted on the in-process bus",
	}, []string{"event_type"})

	BusSubscriberFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heart_bus_subscriber_failures_total",
		Help: "Total number of subscriber callbacks that returned an error or panicked",
	}, []string{"event_type", "kind"})
)

// IncBusEvent records an emitted event.
func IncBusEvent(eventType string) {
	BusEventsTotal.WithLabelValues(label(eventType)).Inc()
}

// IncSubscriberFailure records a failed subscriber callback. Kind is
// "error" or "panic".
func IncSubscriberFailure(eventType, kind string) {
	BusSubscriberFailuresTotal.WithLabelValues(label(eventType), label(kind)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
