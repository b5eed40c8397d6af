package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pointstake/internal/config"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

var (
	ErrInvalidSide         = errors.New("side must be YES or NO")
	ErrStakeOutOfBounds    = errors.New("stake outside allowed bounds")
	ErrMarketNotFound      = errors.New("market not found")
	ErrMarketResolved      = errors.New("market already resolved")
	ErrMarketClosed        = errors.New("market closed for staking")
	ErrNoDecisionYet       = errors.New("no engine decision for market yet")
	ErrInvalidEntryPrice   = errors.New("entry price out of range")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrUserNotFound        = errors.New("user not found")
)

// checkinRewards maps streak length (capped at 7 days) to the daily reward.
var checkinRewards = []int64{10, 15, 20, 25, 30, 40, 50}

type LedgerService struct {
	Store  repository.Repository
	Prices PriceOracle
	Cfg    config.LedgerConfig
	Logger *zap.Logger
}

// EnsureUser returns the account for a wallet, creating it with the signup
// grant on first sight. Wallets are stored lowercase.
func (s *LedgerService) EnsureUser(ctx context.Context, wallet string) (*models.User, error) {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if wallet == "" {
		return nil, errors.New("wallet is required")
	}

	user, err := s.Store.GetUserByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	created := &models.User{
		Wallet: wallet,
		Points: s.Cfg.SignupGrant,
	}
	err = s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.CreateUserTx(tx, created); err != nil {
			return err
		}
		if s.Cfg.SignupGrant <= 0 {
			return nil
		}
		return s.Store.InsertLedgerEntryTx(tx, &models.LedgerEntry{
			UserID: created.ID,
			Wallet: created.Wallet,
			Amount: s.Cfg.SignupGrant,
			Type:   models.LedgerSignup,
			Reason: "signup grant",
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("user created",
		zap.String("wallet", wallet),
		zap.Int64("signup_grant", s.Cfg.SignupGrant))
	return created, nil
}

// PlaceStake opens a user position on a market the engine has already
// decided. The stake is debited and its ledger entry written in the same
// transaction that creates the position.
func (s *LedgerService) PlaceStake(ctx context.Context, userID uint64, marketID uint64, side string, stake int64) (*models.Position, error) {
	side = strings.ToUpper(strings.TrimSpace(side))
	if side != models.SideYes && side != models.SideNo {
		return nil, ErrInvalidSide
	}
	if stake < s.Cfg.MinStake || stake > s.Cfg.MaxStake {
		return nil, ErrStakeOutOfBounds
	}

	market, err := s.Store.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if market.Resolved {
		return nil, ErrMarketResolved
	}
	if !market.EndTime.After(time.Now().UTC()) {
		return nil, ErrMarketClosed
	}

	decision, err := s.Store.GetDecisionByMarketID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, ErrNoDecisionYet
	}

	yesPrice, err := s.Prices.MidpointProbability(ctx, market.YesTokenID)
	if err != nil {
		return nil, fmt.Errorf("fetch entry price: %w", err)
	}
	entry := yesPrice
	if side == models.SideNo {
		entry = decimal.NewFromInt(1).Sub(yesPrice)
	}
	if entry.LessThanOrEqual(decimal.Zero) || entry.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidEntryPrice
	}

	agree := side == decision.Side
	now := time.Now().UTC()
	position := &models.Position{
		MarketID:    marketID,
		UserID:      &userID,
		Side:        side,
		Stake:       stake,
		EntryPrice:  entry,
		AgreeWithAI: &agree,
		PlacedAt:    now,
	}

	err = s.Store.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Store.GetUserByIDForUpdateTx(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Points < stake {
			return ErrInsufficientBalance
		}
		if err := s.Store.AddUserPointsTx(tx, userID, -stake); err != nil {
			return err
		}
		if err := s.Store.InsertLedgerEntryTx(tx, &models.LedgerEntry{
			UserID: userID,
			Wallet: user.Wallet,
			Amount: -stake,
			Type:   models.LedgerStakePlaced,
			Reason: fmt.Sprintf("stake on market %d %s", marketID, side),
		}); err != nil {
			return err
		}
		return s.Store.InsertPositionTx(tx, position)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("user stake placed",
		zap.Uint64("user_id", userID),
		zap.Uint64("market_id", marketID),
		zap.String("side", side),
		zap.Int64("stake", stake),
		zap.Bool("agree_with_ai", agree))
	return position, nil
}

// DailyCheckin credits the user's daily reward. Consecutive UTC days grow
// the streak and the reward, capped at the top of the table; a missed day
// resets the streak to one.
func (s *LedgerService) DailyCheckin(ctx context.Context, userID uint64) (streak int, reward int64, err error) {
	now := time.Now().UTC()

	err = s.Store.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Store.GetUserByIDForUpdateTx(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		streak, err = nextStreak(user.LastCheckin, user.StreakDays, now)
		if err != nil {
			return err
		}
		reward = checkinReward(streak)

		if err := s.Store.AddUserPointsTx(tx, userID, reward); err != nil {
			return err
		}
		if err := s.Store.InsertLedgerEntryTx(tx, &models.LedgerEntry{
			UserID: userID,
			Wallet: user.Wallet,
			Amount: reward,
			Type:   models.LedgerCheckin,
			Reason: fmt.Sprintf("daily check-in, streak %d", streak),
		}); err != nil {
			return err
		}
		return s.Store.UpdateUserCheckinTx(tx, userID, now, streak)
	})
	if err != nil {
		return 0, 0, err
	}
	return streak, reward, nil
}

func nextStreak(last *time.Time, current int, now time.Time) (int, error) {
	if last == nil {
		return 1, nil
	}
	lastDay := last.UTC().Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)
	switch {
	case lastDay.Equal(today):
		return 0, ErrAlreadyCheckedIn
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return current + 1, nil
	default:
		return 1, nil
	}
}

func checkinReward(streak int) int64 {
	if streak < 1 {
		streak = 1
	}
	if streak > len(checkinRewards) {
		streak = len(checkinRewards)
	}
	return checkinRewards[streak-1]
}

// AdjustPoints applies a signed admin adjustment. The balance may not go
// negative.
func (s *LedgerService) AdjustPoints(ctx context.Context, userID uint64, delta int64, reason string) error {
	if delta == 0 {
		return nil
	}
	return s.Store.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Store.GetUserByIDForUpdateTx(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Points+delta < 0 {
			return ErrInsufficientBalance
		}
		if err := s.Store.AddUserPointsTx(tx, userID, delta); err != nil {
			return err
		}
		return s.Store.InsertLedgerEntryTx(tx, &models.LedgerEntry{
			UserID: userID,
			Wallet: user.Wallet,
			Amount: delta,
			Type:   models.LedgerAdminAdjustment,
			Reason: reason,
		})
	})
}

// History returns a page of a user's ledger entries, newest first, with the
// total entry count.
func (s *LedgerService) History(ctx context.Context, userID uint64, limit, offset int) ([]models.LedgerEntry, int64, error) {
	filter := repository.LedgerFilter{UserID: userID, Limit: limit, Offset: offset}
	entries, err := s.Store.ListLedgerEntries(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountLedgerEntries(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Leaderboard returns the top users by balance.
func (s *LedgerService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	return s.Store.ListUsersByPoints(ctx, limit)
}
