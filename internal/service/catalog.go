package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pointstake/internal/client/polymarket/gamma"
	"pointstake/internal/config"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

// MarketLister is the slice of the Gamma client the catalog needs.
type MarketLister interface {
	ListMarkets(ctx context.Context, tagSlug string, limit int) ([]gamma.MarketListing, error)
}

type CatalogService struct {
	Store  repository.Repository
	Gamma  MarketLister
	Cfg    config.CatalogConfig
	Logger *zap.Logger
}

type SyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Rejected int `json:"rejected"`
}

// SyncMarkets pulls the top active markets for each configured category and
// upserts the ones that pass validation. Listings that fail validation are
// counted and skipped, never stored.
func (s *CatalogService) SyncMarkets(ctx context.Context) (SyncResult, error) {
	if s.Gamma == nil {
		return SyncResult{}, fmt.Errorf("gamma client is nil")
	}
	result := SyncResult{}
	now := time.Now().UTC()

	for _, category := range s.Cfg.Categories {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		listings, err := s.Gamma.ListMarkets(ctx, category, s.Cfg.MarketsPerCategory)
		if err != nil {
			s.Logger.Warn("market listing fetch failed",
				zap.String("category", category),
				zap.Error(err))
			continue
		}
		result.Fetched += len(listings)

		for i := range listings {
			market, err := parseListing(&listings[i], category, now, s.Cfg)
			if err != nil {
				result.Rejected++
				s.Logger.Debug("listing rejected",
					zap.String("category", category),
					zap.String("external_id", listings[i].ID),
					zap.Error(err))
				continue
			}
			if err := s.Store.UpsertMarket(ctx, market); err != nil {
				return result, fmt.Errorf("upsert market %s: %w", market.ExternalID, err)
			}
			result.Upserted++
		}
	}

	s.Logger.Info("market sync complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("upserted", result.Upserted),
		zap.Int("rejected", result.Rejected))
	return result, nil
}

// parseListing validates a raw listing and maps it onto a Market row.
// Rejection reasons: missing ID or question, not a binary Yes/No market,
// missing or malformed token IDs, missing end time, already ended, ending
// beyond the staking horizon, or volume below the floor. Ineligible listings
// never reach the store.
func parseListing(l *gamma.MarketListing, category string, now time.Time, cfg config.CatalogConfig) (*models.Market, error) {
	if strings.TrimSpace(l.ID) == "" {
		return nil, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(l.Question) == "" {
		return nil, fmt.Errorf("missing question")
	}
	if !l.Binary() {
		return nil, fmt.Errorf("not a binary market")
	}
	yesToken, noToken, err := l.TokenIDs()
	if err != nil {
		return nil, err
	}
	if l.EndDate == nil || l.EndDate.IsZero() {
		return nil, fmt.Errorf("missing end date")
	}
	if !l.EndDate.After(now) {
		return nil, fmt.Errorf("already ended")
	}
	if cfg.MaxMarketDays > 0 && l.EndDate.After(now.AddDate(0, 0, cfg.MaxMarketDays)) {
		return nil, fmt.Errorf("ends beyond %d-day horizon", cfg.MaxMarketDays)
	}
	if cfg.MinVolume > 0 && l.Volume.LessThan(decimalFromFloat(cfg.MinVolume)) {
		return nil, fmt.Errorf("volume %s below floor", l.Volume)
	}

	return &models.Market{
		ExternalID:  strings.TrimSpace(l.ID),
		Question:    strings.TrimSpace(l.Question),
		Description: l.Description,
		Category:    category,
		YesTokenID:  yesToken,
		NoTokenID:   noToken,
		EndTime:     l.EndDate.UTC(),
		Volume:      l.Volume.Decimal,
		Liquidity:   l.Liquidity.Decimal,
		RawJSON:     datatypes.JSON(l.Raw),
	}, nil
}

// EligibleMarkets returns the stored markets the decision cycle may consider
// for a category: unresolved, ending within the configured horizon, and above
// the volume floor, highest volume first.
func (s *CatalogService) EligibleMarkets(ctx context.Context, category string, limit int) ([]models.Market, error) {
	now := time.Now().UTC()
	return s.Store.ListEligibleMarkets(ctx, repository.EligibleMarketsFilter{
		Category:  category,
		Now:       now,
		MaxEnd:    now.AddDate(0, 0, s.Cfg.MaxMarketDays),
		MinVolume: decimalFromFloat(s.Cfg.MinVolume),
		Limit:     limit,
	})
}

// MarketsPastDeadline returns unresolved markets whose end time has passed,
// oldest deadline first. The settlement cycle drains this list.
func (s *CatalogService) MarketsPastDeadline(ctx context.Context, limit int) ([]models.Market, error) {
	return s.Store.ListMarketsPastDeadline(ctx, time.Now().UTC(), limit)
}
