package service

import (
	"context"

	"github.com/shopspring/decimal"

	"pointstake/internal/estimator"
)

// PriceOracle reports the current implied probability for an outcome token.
type PriceOracle interface {
	MidpointProbability(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// OutcomeOracle reports a market's settled outcome ("YES", "NO", "CANCELLED")
// or empty when unresolved.
type OutcomeOracle interface {
	Resolution(ctx context.Context, externalID string) (string, error)
}

// ProbabilityEstimator is the decision engine's view of the AI estimator.
type ProbabilityEstimator interface {
	Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error)
}

func decimalFromFloat(f float64) decimal.Decimal {
	if f == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
