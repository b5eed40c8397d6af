package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pointstake/internal/client/polymarket/gamma"
	"pointstake/internal/estimator"
	"pointstake/internal/models"
	"pointstake/internal/repository"
)

type stubPrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	calls  int
}

func (s *stubPrices) MidpointProbability(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	price, ok := s.prices[tokenID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for token %s", tokenID)
	}
	return price, nil
}

type stubEstimator struct {
	est   estimator.Estimate
	err   error
	calls int
}

func (s *stubEstimator) Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error) {
	s.calls++
	if s.err != nil {
		return estimator.Estimate{}, s.err
	}
	return s.est, nil
}

type stubOutcomes struct {
	outcomes map[string]string
	err      error
	calls    int
}

func (s *stubOutcomes) Resolution(ctx context.Context, externalID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.outcomes[externalID], nil
}

type stubLister struct {
	listings map[string][]gamma.MarketListing
	err      error
}

func (s *stubLister) ListMarkets(ctx context.Context, tagSlug string, limit int) ([]gamma.MarketListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings[tagSlug], nil
}

func mkMarket(repo *stubRepo, externalID, category string, volume int64, endsIn time.Duration) models.Market {
	return repo.addMarket(models.Market{
		ExternalID: externalID,
		Question:   "Will " + externalID + " happen?",
		Category:   category,
		YesTokenID: externalID + "-yes",
		NoTokenID:  externalID + "-no",
		EndTime:    time.Now().UTC().Add(endsIn),
		Volume:     decimal.NewFromInt(volume),
	})
}

func mkUser(repo *stubRepo, wallet string, points int64) models.User {
	return repo.addUser(models.User{Wallet: wallet, Points: points})
}

func ledgerFilterType(t string) repository.LedgerFilter {
	return repository.LedgerFilter{Type: t}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
