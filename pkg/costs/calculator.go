package costs

import (
	"errors"
	"math"

	"askmeter-hq/askproxy/pkg/config"
)

// Rounding precision for values returned to callers.
const (
	// LatencyPlaces rounds latency seconds to milliseconds.
	LatencyPlaces = 3

	// CostPlaces rounds USD amounts to micro-dollars.
	CostPlaces = 6
)

// Calculator derives cost estimates from token usage. Pricing is fixed at
// construction, so a Calculator is safe for concurrent use without locking.
type Calculator struct {
	pricing Pricing
}

// NewCalculator creates a calculator from the pricing configuration.
// Negative rates are rejected.
func NewCalculator(cfg config.PricingConfig) (*Calculator, error) {
	if cfg.PromptPer1K < 0 || cfg.CompletionPer1K < 0 {
		return nil, errors.New("pricing rates must be non-negative")
	}
	return &Calculator{
		pricing: Pricing{
			PromptPer1K:     cfg.PromptPer1K,
			CompletionPer1K: cfg.CompletionPer1K,
		},
	}, nil
}

// Pricing returns the rates in use.
func (c *Calculator) Pricing() Pricing {
	return c.pricing
}

// Calculate returns the cost of usage:
//
//	prompt_tokens/1000*prompt_rate + completion_tokens/1000*completion_rate
//
// The result is not rounded; use Round for presentation.
func (c *Calculator) Calculate(usage TokenUsage) CostEstimate {
	est := CostEstimate{
		PromptCost:     calculateTokenCost(usage.PromptTokens, c.pricing.PromptPer1K),
		CompletionCost: calculateTokenCost(usage.CompletionTokens, c.pricing.CompletionPer1K),
	}
	est.TotalCost = est.PromptCost + est.CompletionCost
	return est
}

// calculateTokenCost calculates cost for a given number of tokens.
func calculateTokenCost(tokens int, costPer1K float64) float64 {
	if tokens <= 0 || costPer1K <= 0 {
		return 0
	}
	return (float64(tokens) / 1000.0) * costPer1K
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
