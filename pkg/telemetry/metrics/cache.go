package metrics

import (
	"askmeter-hq/askproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// NameCacheSavings is the cache savings gauge name, without the namespace prefix.
const NameCacheSavings = "cache_savings_ratio"

// SimulatedCacheSavings is the value written to the cache savings gauge after
// every successful call. There is no cache behind it; the figure is a fixed
// placeholder kept so existing dashboards have a series to plot.
const SimulatedCacheSavings = 0.18

// CacheMetrics holds the simulated cache savings gauge.
//
// Metrics:
//   - openai_cache_savings_ratio: Simulated, always SimulatedCacheSavings once set
type CacheMetrics struct {
	savingsRatio prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		savingsRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      NameCacheSavings,
			Help:      "Fraction of tokens saved due to caching (simulated, no cache is consulted)",
		}),
	}

	registry.MustRegister(cm.savingsRatio)

	return cm
}
