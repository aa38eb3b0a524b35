package peripheral

import (
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/log"
)

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	metricsEnabled bool
	logger         zerolog.Logger
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		metricsEnabled: true,
		logger:         log.WithComponent("peripheral"),
	}
}

// WithMetrics enables or disables Prometheus metrics collection.
func WithMetrics(enabled bool) ManagerOption {
	return func(c *managerConfig) {
		c.metricsEnabled = enabled
	}
}

// WithLogger sets the manager's logger. Instance contexts derive from it.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = l
	}
}
