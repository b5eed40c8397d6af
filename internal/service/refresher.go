package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pointstake/internal/config"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

type RefresherService struct {
	Store  repository.Repository
	Prices PriceOracle
	Cfg    config.RefreshConfig
	Logger *zap.Logger
}

type RefreshResult struct {
	Markets int `json:"markets"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// RefreshOpenPositionPrices re-prices every open position from the current
// YES midpoint of its market. Markets are fetched in bounded concurrent
// batches with a pause between batches; one market's failure never blocks
// the rest, its positions are just counted as failed.
func (s *RefresherService) RefreshOpenPositionPrices(ctx context.Context) (RefreshResult, error) {
	result := RefreshResult{}

	positions, err := s.Store.ListOpenPositions(ctx)
	if err != nil {
		return result, err
	}
	if len(positions) == 0 {
		return result, nil
	}

	byMarket := map[uint64][]models.Position{}
	marketIDs := make([]uint64, 0, len(positions))
	for _, p := range positions {
		if _, seen := byMarket[p.MarketID]; !seen {
			marketIDs = append(marketIDs, p.MarketID)
		}
		byMarket[p.MarketID] = append(byMarket[p.MarketID], p)
	}
	result.Markets = len(marketIDs)

	markets, err := s.Store.ListMarketsByIDs(ctx, marketIDs)
	if err != nil {
		return result, err
	}
	tokens := make(map[uint64]string, len(markets))
	for _, m := range markets {
		tokens[m.ID] = m.YesTokenID
	}

	batchSize := s.Cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(marketIDs); start += batchSize {
		end := start + batchSize
		if end > len(marketIDs) {
			end = len(marketIDs)
		}

		var mu sync.Mutex
		group, groupCtx := errgroup.WithContext(ctx)
		for _, marketID := range marketIDs[start:end] {
			marketID := marketID
			group.Go(func() error {
				updated, failed := s.refreshMarket(groupCtx, marketID, tokens[marketID], byMarket[marketID])
				mu.Lock()
				result.Updated += updated
				result.Failed += failed
				mu.Unlock()
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return result, err
		}

		if end < len(marketIDs) && s.Cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.Cfg.BatchPause):
			}
		}
	}

	s.Logger.Info("price refresh complete",
		zap.Int("markets", result.Markets),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))
	return result, nil
}

// refreshMarket fetches one market's YES midpoint under the per-call timeout
// and writes it through to every open position on that market. NO positions
// carry the complement price.
func (s *RefresherService) refreshMarket(ctx context.Context, marketID uint64, yesTokenID string, positions []models.Position) (updated, failed int) {
	if yesTokenID == "" {
		s.Logger.Warn("market missing yes token", zap.Uint64("market_id", marketID))
		return 0, len(positions)
	}

	callCtx := ctx
	if s.Cfg.PriceTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Cfg.PriceTimeout)
		defer cancel()
	}

	yesPrice, err := s.Prices.MidpointProbability(callCtx, yesTokenID)
	if err != nil {
		s.Logger.Warn("price fetch failed",
			zap.Uint64("market_id", marketID),
			zap.Error(err))
		return 0, len(positions)
	}
	noPrice := decimal.NewFromInt(1).Sub(yesPrice)

	// Snapshot failures are logged and ignored; the position updates below
	// are the point of the cycle.
	if err := s.Store.InsertPriceSnapshot(ctx, &models.PriceSnapshot{
		MarketID: marketID,
		YesPrice: yesPrice,
		NoPrice:  noPrice,
	}); err != nil {
		s.Logger.Warn("price snapshot failed",
			zap.Uint64("market_id", marketID),
			zap.Error(err))
	}

	for _, p := range positions {
		price := yesPrice
		if p.Side == models.SideNo {
			price = noPrice
		}
		if err := s.Store.UpdatePositionPrice(ctx, p.ID, price); err != nil {
			s.Logger.Warn("position price update failed",
				zap.Uint64("position_id", p.ID),
				zap.Error(err))
			failed++
			continue
		}
		updated++
	}
	return updated, failed
}
