package playlist

import (
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/log"
)

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	// historyLimit bounds how many finished runs stay queryable.
	historyLimit   int
	metricsEnabled bool
	logger         zerolog.Logger
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		historyLimit:   1024,
		metricsEnabled: true,
		logger:         log.WithComponent("playlist"),
	}
}

// WithHistoryLimit sets how many finished runs Status and Join remember.
func WithHistoryLimit(n int) ManagerOption {
	return func(c *managerConfig) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithMetrics enables or disables Prometheus metrics collection.
func WithMetrics(enabled bool) ManagerOption {
	return func(c *managerConfig) {
		c.metricsEnabled = enabled
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = l
	}
}
