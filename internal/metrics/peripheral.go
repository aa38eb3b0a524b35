package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PeripheralOutputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heart_virtual_peripheral_outputs_total",
		Help: "Total number of events synthesized by virtual peripherals",
	}, []string{"peripheral"})

	PeripheralsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heart_virtual_peripherals_registered",
		Help: "Number of virtual peripherals currently registered",
	})
)

// IncPeripheralOutput records an event synthesized by the named peripheral.
func IncPeripheralOutput(name string) {
	PeripheralOutputsTotal.WithLabelValues(label(name)).Inc()
}
