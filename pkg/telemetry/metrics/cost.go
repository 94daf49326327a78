package metrics

import (
	"askmeter-hq/askproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Cost instrument names, without the namespace prefix.
const (
	NameCost     = "cost_total"
	NameUserCost = "user_cost_total"
)

// CostMetrics tracks estimated spend in USD.
//
// Metrics:
//   - openai_cost_total: Total estimated cost
//   - openai_user_cost_total{user}: Estimated cost by user
type CostMetrics struct {
	costTotal     prometheus.Counter
	userCostTotal *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics with the provided registry.
func NewCostMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      NameCost,
			Help:      "Total estimated cost in USD",
		}),

		userCostTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      NameUserCost,
				Help:      "Total cost per user/team",
			},
			[]string{"user"},
		),
	}

	registry.MustRegister(cm.costTotal, cm.userCostTotal)

	return cm
}
