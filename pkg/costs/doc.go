// Package costs estimates the USD cost of a completion from its token usage.
//
// Rates are per 1000 tokens and come from the pricing section of the
// configuration (0.0015 prompt and 0.002 completion by default):
//
//	calc, _ := costs.NewCalculator(cfg.Pricing)
//	est := calc.Calculate(costs.TokenUsage{PromptTokens: 100, CompletionTokens: 50})
//	costs.Round(est.TotalCost, costs.CostPlaces) // 0.00025
package costs
