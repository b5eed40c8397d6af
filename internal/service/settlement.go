package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pointstake/internal/config"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

type SettlementService struct {
	Store    repository.Repository
	Catalog  *CatalogService
	Outcomes OutcomeOracle
	Cfg      config.SettlementConfig
	Logger   *zap.Logger
}

type SettlementCycleResult struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// positionSettlement is the computed outcome of one position, decided before
// any write happens.
type positionSettlement struct {
	Won    *bool
	Payout int64
	// Ledger credit for user positions: the payout on a win, the stake back
	// on a cancellation, zero on a loss.
	Credit     int64
	LedgerType string
}

// settleOutcome resolves a position against a market outcome. Winning payout
// is floor(stake / entry price), stake included; a cancelled market returns
// the stake untouched. A won position keeps Won=true even when the floored
// payout is zero.
func settleOutcome(p *models.Position, outcome string) positionSettlement {
	if outcome == models.OutcomeCancelled {
		return positionSettlement{
			Won:        nil,
			Payout:     p.Stake,
			Credit:     p.Stake,
			LedgerType: models.LedgerStakeRefunded,
		}
	}

	won := p.Side == outcome
	if !won {
		lost := false
		return positionSettlement{Won: &lost, Payout: 0}
	}

	payout := decimal.NewFromInt(p.Stake).Div(p.EntryPrice).Floor().IntPart()
	w := true
	return positionSettlement{
		Won:        &w,
		Payout:     payout,
		Credit:     payout,
		LedgerType: models.LedgerStakeWon,
	}
}

// SettleMarket resolves a single market end to end. A missing or already
// resolved market is a no-op returning false; otherwise the venue is asked
// for a definitive outcome, and a market the venue has not finalized stays
// open, also returning false. Safe to call repeatedly and concurrently.
func (s *SettlementService) SettleMarket(ctx context.Context, marketID uint64) (bool, error) {
	market, err := s.Store.GetMarketByID(ctx, marketID)
	if err != nil {
		return false, err
	}
	if market == nil || market.Resolved {
		return false, nil
	}

	outcome, err := s.lookupOutcome(ctx, market.ExternalID)
	if err != nil {
		return false, err
	}
	if outcome == "" {
		return false, nil
	}
	return s.settleWithOutcome(ctx, marketID, outcome)
}

// settleWithOutcome settles every open position on a market under the given
// outcome, in a single transaction holding the market row lock. Returns
// false when the market is gone or already resolved; in that case nothing
// is written, so repeated calls are safe.
func (s *SettlementService) settleWithOutcome(ctx context.Context, marketID uint64, outcome string) (bool, error) {
	switch outcome {
	case models.OutcomeYes, models.OutcomeNo, models.OutcomeCancelled:
	default:
		return false, fmt.Errorf("invalid outcome %q", outcome)
	}

	settled := false
	err := s.Store.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Store.GetMarketByIDForUpdateTx(tx, marketID)
		if err != nil {
			return err
		}
		if market == nil || market.Resolved {
			return nil
		}

		positions, err := s.Store.ListOpenPositionsByMarketTx(tx, marketID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range positions {
			if err := s.settlePositionTx(tx, &positions[i], outcome, now); err != nil {
				return err
			}
		}

		if err := s.Store.MarkMarketResolvedTx(tx, marketID, outcome); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if settled {
		s.Logger.Info("market settled",
			zap.Uint64("market_id", marketID),
			zap.String("outcome", outcome))
	}
	return settled, nil
}

func (s *SettlementService) settlePositionTx(tx *gorm.DB, p *models.Position, outcome string, now time.Time) error {
	res := settleOutcome(p, outcome)
	if err := s.Store.SettlePositionTx(tx, p.ID, res.Won, res.Payout, now); err != nil {
		return err
	}
	if p.System() {
		return nil
	}

	user, err := s.Store.GetUserByIDForUpdateTx(tx, *p.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d not found for position %d", *p.UserID, p.ID)
	}

	if res.Credit > 0 {
		if err := s.Store.AddUserPointsTx(tx, user.ID, res.Credit); err != nil {
			return err
		}
		if err := s.Store.InsertLedgerEntryTx(tx, &models.LedgerEntry{
			UserID: user.ID,
			Wallet: user.Wallet,
			Amount: res.Credit,
			Type:   res.LedgerType,
			Reason: fmt.Sprintf("market %d settled %s", p.MarketID, outcome),
		}); err != nil {
			return err
		}
	}

	// Cancelled markets count as neither a bet nor a win.
	if res.Won != nil {
		if err := s.Store.IncrementUserBetsTx(tx, user.ID); err != nil {
			return err
		}
		if *res.Won {
			if err := s.Store.IncrementUserWinsTx(tx, user.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunSettlementCycle looks up the outcome of every unresolved market past
// its deadline and settles the ones the oracle has resolved. Markets whose
// outcome is not final yet stay pending for the next cycle.
func (s *SettlementService) RunSettlementCycle(ctx context.Context) (SettlementCycleResult, error) {
	result := SettlementCycleResult{}

	markets, err := s.Catalog.MarketsPastDeadline(ctx, 0)
	if err != nil {
		return result, err
	}

	for i := range markets {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		market := &markets[i]
		result.Checked++

		outcome, err := s.lookupOutcome(ctx, market.ExternalID)
		if err != nil {
			s.Logger.Warn("outcome lookup failed",
				zap.Uint64("market_id", market.ID),
				zap.String("external_id", market.ExternalID),
				zap.Error(err))
			result.Failed++
			continue
		}
		if outcome == "" {
			result.Pending++
			continue
		}

		settled, err := s.settleWithOutcome(ctx, market.ID, outcome)
		if err != nil {
			s.Logger.Error("settlement failed",
				zap.Uint64("market_id", market.ID),
				zap.String("outcome", outcome),
				zap.Error(err))
			result.Failed++
			continue
		}
		if settled {
			result.Settled++
		}
	}

	s.Logger.Info("settlement cycle complete",
		zap.Int("checked", result.Checked),
		zap.Int("settled", result.Settled),
		zap.Int("pending", result.Pending),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *SettlementService) lookupOutcome(ctx context.Context, externalID string) (string, error) {
	callCtx := ctx
	if s.Cfg.OutcomeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Cfg.OutcomeTimeout)
		defer cancel()
	}
	return s.Outcomes.Resolution(callCtx, externalID)
}
