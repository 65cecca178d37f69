package memori

import (
	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/observability"
)

// toObservabilityConfig expands the flat config.ObservabilityConfig
// the rest of memori's config is written in into the richer nested
// shape pkg/observability.Manager expects.
func toObservabilityConfig(c config.ObservabilityConfig) *observability.Config {
	return &observability.Config{
		Tracing: observability.TracingConfig{
			Enabled:     c.TracingEnabled,
			Endpoint:    c.OTLPEndpoint,
			ServiceName: c.ServiceName,
		},
		Metrics: observability.MetricsConfig{
			Enabled:   c.MetricsEnabled,
			Namespace: c.ServiceName,
		},
	}
}
