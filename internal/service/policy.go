package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pointstake/internal/config"
	"pointstake/internal/estimator"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

type PolicyService struct {
	Store     repository.Repository
	Catalog   *CatalogService
	Prices    PriceOracle
	Estimator ProbabilityEstimator
	Cfg       config.PolicyConfig
	Logger    *zap.Logger
}

type DecisionCycleResult struct {
	Scanned   int               `json:"scanned"`
	Placed    int               `json:"placed"`
	Skipped   int               `json:"skipped"`
	Decisions []models.Decision `json:"decisions"`
}

// appraisal is a stake the policy would take, fully priced. Produced by pure
// computation; persistence happens separately.
type appraisal struct {
	Side          string
	EntryPrice    decimal.Decimal
	Probability   decimal.Decimal
	Confidence    float64
	ExpectedValue decimal.Decimal
	Edge          decimal.Decimal
	Rationale     string
}

// RunDecisionCycle scans eligible markets category by category, in descending
// volume order, and opens at most StakesPerCategory engine positions per
// category. MaxMarketsToScan is a budget for the whole cycle, not per
// category. Markets that already carry a decision are skipped, so rerunning
// the cycle never duplicates a stake. Returns the decision records created
// this cycle; an empty list is a normal outcome.
func (s *PolicyService) RunDecisionCycle(ctx context.Context) (DecisionCycleResult, error) {
	result := DecisionCycleResult{}

	for _, category := range s.Catalog.Cfg.Categories {
		if s.budgetExhausted(result.Scanned) {
			s.Logger.Info("scan budget exhausted",
				zap.Int("scanned", result.Scanned),
				zap.Int("budget", s.Cfg.MaxMarketsToScan))
			break
		}
		if err := s.decideCategory(ctx, category, &result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.Logger.Warn("decision pass failed for category",
				zap.String("category", category),
				zap.Error(err))
			continue
		}
	}

	s.Logger.Info("decision cycle complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("placed", result.Placed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *PolicyService) budgetExhausted(scanned int) bool {
	return s.Cfg.MaxMarketsToScan > 0 && scanned >= s.Cfg.MaxMarketsToScan
}

func (s *PolicyService) decideCategory(ctx context.Context, category string, result *DecisionCycleResult) error {
	limit := 0
	if s.Cfg.MaxMarketsToScan > 0 {
		limit = s.Cfg.MaxMarketsToScan - result.Scanned
	}
	markets, err := s.Catalog.EligibleMarkets(ctx, category, limit)
	if err != nil {
		return err
	}

	placed := 0
	for i := range markets {
		if placed >= s.Cfg.StakesPerCategory {
			break
		}
		if s.budgetExhausted(result.Scanned) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		market := &markets[i]
		result.Scanned++

		decision, err := s.decideMarket(ctx, market)
		if err != nil {
			s.Logger.Warn("market appraisal failed",
				zap.Uint64("market_id", market.ID),
				zap.String("question", market.Question),
				zap.Error(err))
			result.Skipped++
			continue
		}
		if decision == nil {
			result.Skipped++
			continue
		}
		result.Decisions = append(result.Decisions, *decision)
		result.Placed++
		placed++
	}
	return nil
}

// decideMarket appraises one market and, when the appraisal clears every
// gate, opens the engine position and records the decision atomically.
// Returns the created decision record, nil when the market was skipped.
func (s *PolicyService) decideMarket(ctx context.Context, market *models.Market) (*models.Decision, error) {
	existing, err := s.Store.GetDecisionByMarketID(ctx, market.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	yesPrice, err := s.Prices.MidpointProbability(ctx, market.YesTokenID)
	if err != nil {
		return nil, fmt.Errorf("fetch yes price: %w", err)
	}
	noPrice := decimal.NewFromInt(1).Sub(yesPrice)

	// The estimator call is the expensive step; when neither side could
	// possibly clear the price band, skip the market without asking.
	minEntry := decimalFromFloat(s.Cfg.MinEntryPrice)
	maxEntry := decimalFromFloat(s.Cfg.MaxEntryPrice)
	if !withinBand(yesPrice, minEntry, maxEntry) && !withinBand(noPrice, minEntry, maxEntry) {
		return nil, nil
	}

	est, err := s.Estimator.Estimate(ctx, estimator.Request{
		Question:    market.Question,
		Description: market.Description,
		Category:    market.Category,
		YesPrice:    yesPrice,
		NoPrice:     noPrice,
		EndTime:     market.EndTime,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}

	appr, reason := appraiseStake(s.Cfg, est, yesPrice, noPrice)
	if reason != "" {
		s.Logger.Debug("stake rejected",
			zap.Uint64("market_id", market.ID),
			zap.String("reason", reason))
		return nil, nil
	}

	decision, err := s.placeEngineStake(ctx, market, appr)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("engine stake placed",
		zap.Uint64("market_id", market.ID),
		zap.String("question", market.Question),
		zap.String("side", appr.Side),
		zap.String("entry_price", appr.EntryPrice.String()),
		zap.String("edge", appr.Edge.String()),
		zap.Float64("confidence", appr.Confidence))
	return decision, nil
}

// appraiseStake applies every policy gate to an estimate and prices the
// resulting stake. A non-empty second return names the first failed gate.
func appraiseStake(cfg config.PolicyConfig, est estimator.Estimate, yesPrice, noPrice decimal.Decimal) (appraisal, string) {
	entry := yesPrice
	if est.Side == models.SideNo {
		entry = noPrice
	}

	if !withinBand(entry, decimalFromFloat(cfg.MinEntryPrice), decimalFromFloat(cfg.MaxEntryPrice)) {
		return appraisal{}, "entry price out of band"
	}
	if est.Confidence < cfg.ConfidenceThreshold {
		return appraisal{}, "confidence below threshold"
	}

	edge := est.Probability.Sub(entry)
	if edge.LessThan(decimalFromFloat(cfg.MinEdge)) {
		return appraisal{}, "edge below minimum"
	}

	// EV weighs the full stake/entry payout against losing the stake.
	// Payout flooring is a settlement-time concern, not a pricing one.
	stake := decimal.NewFromInt(cfg.StakeAmount)
	payout := stake.Div(entry)
	lossProb := decimal.NewFromInt(1).Sub(est.Probability)
	ev := est.Probability.Mul(payout).Sub(lossProb.Mul(stake))
	if ev.LessThan(decimalFromFloat(cfg.MinExpectedValue)) {
		return appraisal{}, "expected value below minimum"
	}

	return appraisal{
		Side:          est.Side,
		EntryPrice:    entry,
		Probability:   est.Probability,
		Confidence:    est.Confidence,
		ExpectedValue: ev,
		Edge:          edge,
		Rationale:     est.Rationale,
	}, ""
}

func withinBand(price, min, max decimal.Decimal) bool {
	return price.GreaterThanOrEqual(min) && price.LessThanOrEqual(max)
}

// placeEngineStake opens the system position and its decision record in one
// transaction. The unique index on decisions.market_id makes a concurrent
// duplicate fail the whole transaction, keeping at most one stake per market.
func (s *PolicyService) placeEngineStake(ctx context.Context, market *models.Market, appr appraisal) (*models.Decision, error) {
	now := time.Now().UTC()
	decision := &models.Decision{
		MarketID:      market.ID,
		Side:          appr.Side,
		Confidence:    appr.Confidence,
		Probability:   appr.Probability,
		EntryPrice:    appr.EntryPrice,
		ExpectedValue: appr.ExpectedValue,
		Edge:          appr.Edge,
		Rationale:     appr.Rationale,
	}
	err := s.Store.InTx(ctx, func(tx *gorm.DB) error {
		position := &models.Position{
			MarketID:   market.ID,
			UserID:     nil,
			Side:       appr.Side,
			Stake:      s.Cfg.StakeAmount,
			EntryPrice: appr.EntryPrice,
			PlacedAt:   now,
		}
		if err := s.Store.InsertPositionTx(tx, position); err != nil {
			return err
		}
		decision.PositionID = position.ID
		return s.Store.InsertDecisionTx(tx, decision)
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}
