package estimator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Request carries the market context handed to an estimator.
type Request struct {
	Question    string
	Description string
	Category    string
	YesPrice    decimal.Decimal
	NoPrice     decimal.Decimal
	EndTime     time.Time
}

// Estimate is a single directional read on a market.
type Estimate struct {
	// Side is "YES" or "NO".
	Side string
	// Confidence in [0, 1]: how sure the model is about its read.
	Confidence float64
	// Probability in (0, 1): the model's estimate that the chosen side wins.
	Probability decimal.Decimal
	// Rationale is a short free-text justification, kept for audit.
	Rationale string
}

// Estimator produces a probability estimate for a market.
type Estimator interface {
	Estimate(ctx context.Context, req Request) (Estimate, error)
}
