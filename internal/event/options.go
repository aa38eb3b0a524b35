package event

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/log"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// handlerTimeout is the deadline applied to each handler's context.
	handlerTimeout time.Duration

	// metricsEnabled controls whether Prometheus counters are updated.
	metricsEnabled bool

	logger zerolog.Logger
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		metricsEnabled: true,
		logger:         log.WithComponent("eventbus"),
	}
}

// WithHandlerTimeout sets a deadline on the context passed to each handler.
// Handlers that ignore their context are not interrupted.
func WithHandlerTimeout(timeout time.Duration) BusOption {
	return func(c *busConfig) {
		if timeout > 0 {
			c.handlerTimeout = timeout
		}
	}
}

// WithMetrics enables or disables Prometheus metrics collection.
func WithMetrics(enabled bool) BusOption {
	return func(c *busConfig) {
		c.metricsEnabled = enabled
	}
}

// WithLogger sets the logger used for subscriber failures.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}
