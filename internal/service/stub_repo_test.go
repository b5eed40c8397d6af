package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pointstake/internal/models"
	"pointstake/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx snapshots the state and restores it when the callback fails, so tests
// can assert rollback behavior. failOn maps a method name to an error that
// the next call to that method returns.
type stubRepo struct {
	// mu guards the methods the refresher calls from concurrent goroutines.
	mu sync.Mutex

	markets   map[uint64]models.Market
	decisions map[uint64]models.Decision
	positions map[uint64]models.Position
	users     map[uint64]models.User
	ledger    []models.LedgerEntry
	snapshots []models.PriceSnapshot

	nextMarketID   uint64
	nextDecisionID uint64
	nextPositionID uint64
	nextUserID     uint64
	nextLedgerID   uint64

	failOn map[string]error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		markets:   map[uint64]models.Market{},
		decisions: map[uint64]models.Decision{},
		positions: map[uint64]models.Position{},
		users:     map[uint64]models.User{},
		failOn:    map[string]error{},
	}
}

func (s *stubRepo) fail(method string) error {
	if err, ok := s.failOn[method]; ok {
		delete(s.failOn, method)
		return err
	}
	return nil
}

func (s *stubRepo) snapshot() *stubRepo {
	clone := newStubRepo()
	for k, v := range s.markets {
		clone.markets[k] = v
	}
	for k, v := range s.decisions {
		clone.decisions[k] = v
	}
	for k, v := range s.positions {
		clone.positions[k] = v
	}
	for k, v := range s.users {
		clone.users[k] = v
	}
	clone.ledger = append([]models.LedgerEntry(nil), s.ledger...)
	clone.snapshots = append([]models.PriceSnapshot(nil), s.snapshots...)
	clone.nextMarketID = s.nextMarketID
	clone.nextDecisionID = s.nextDecisionID
	clone.nextPositionID = s.nextPositionID
	clone.nextUserID = s.nextUserID
	clone.nextLedgerID = s.nextLedgerID
	return clone
}

func (s *stubRepo) restore(saved *stubRepo) {
	s.markets = saved.markets
	s.decisions = saved.decisions
	s.positions = saved.positions
	s.users = saved.users
	s.ledger = saved.ledger
	s.snapshots = saved.snapshots
	s.nextMarketID = saved.nextMarketID
	s.nextDecisionID = saved.nextDecisionID
	s.nextPositionID = saved.nextPositionID
	s.nextUserID = saved.nextUserID
	s.nextLedgerID = saved.nextLedgerID
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	saved := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

// --- Markets ----------------------------------------------------------------

func (s *stubRepo) addMarket(m models.Market) models.Market {
	if m.ID == 0 {
		s.nextMarketID++
		m.ID = s.nextMarketID
	} else if m.ID > s.nextMarketID {
		s.nextMarketID = m.ID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.markets[m.ID] = m
	return m
}

func (s *stubRepo) UpsertMarket(ctx context.Context, m *models.Market) error {
	if err := s.fail("UpsertMarket"); err != nil {
		return err
	}
	for id, existing := range s.markets {
		if existing.ExternalID == m.ExternalID {
			existing.Question = m.Question
			existing.Description = m.Description
			existing.Category = m.Category
			existing.Volume = m.Volume
			existing.Liquidity = m.Liquidity
			existing.RawJSON = m.RawJSON
			s.markets[id] = existing
			m.ID = id
			return nil
		}
	}
	*m = s.addMarket(*m)
	return nil
}

func (s *stubRepo) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	if err := s.fail("GetMarketByID"); err != nil {
		return nil, err
	}
	if m, ok := s.markets[id]; ok {
		copy := m
		return &copy, nil
	}
	return nil, nil
}

func (s *stubRepo) GetMarketByExternalID(ctx context.Context, externalID string) (*models.Market, error) {
	for _, m := range s.markets {
		if m.ExternalID == externalID {
			copy := m
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetMarketByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.Market, error) {
	if err := s.fail("GetMarketByIDForUpdateTx"); err != nil {
		return nil, err
	}
	if m, ok := s.markets[id]; ok {
		copy := m
		return &copy, nil
	}
	return nil, nil
}

func (s *stubRepo) ListEligibleMarkets(ctx context.Context, f repository.EligibleMarketsFilter) ([]models.Market, error) {
	if err := s.fail("ListEligibleMarkets"); err != nil {
		return nil, err
	}
	var out []models.Market
	for _, m := range s.markets {
		if m.Resolved {
			continue
		}
		if !m.EndTime.After(f.Now) {
			continue
		}
		if !f.MaxEnd.IsZero() && m.EndTime.After(f.MaxEnd) {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.MinVolume.IsPositive() && m.Volume.LessThan(f.MinVolume) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Volume.Equal(out[j].Volume) {
			return out[i].Volume.GreaterThan(out[j].Volume)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *stubRepo) ListMarketsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	var out []models.Market
	for _, m := range s.markets {
		if !m.Resolved && !m.EndTime.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) ListMarketsByIDs(ctx context.Context, ids []uint64) ([]models.Market, error) {
	out := make([]models.Market, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.markets[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubRepo) SearchMarkets(ctx context.Context, query string, limit int) ([]models.Market, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	var out []models.Market
	for _, m := range s.markets {
		if term == "" || strings.Contains(strings.ToLower(m.Question), term) ||
			strings.Contains(strings.ToLower(m.Description), term) ||
			strings.Contains(strings.ToLower(m.Category), term) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Volume.GreaterThan(out[j].Volume) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) MarkMarketResolvedTx(tx *gorm.DB, id uint64, outcome string) error {
	if err := s.fail("MarkMarketResolvedTx"); err != nil {
		return err
	}
	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %d not found", id)
	}
	m.Resolved = true
	m.Outcome = &outcome
	s.markets[id] = m
	return nil
}

func (s *stubRepo) CountMarkets(ctx context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

// --- Decisions --------------------------------------------------------------

func (s *stubRepo) GetDecisionByMarketID(ctx context.Context, marketID uint64) (*models.Decision, error) {
	if err := s.fail("GetDecisionByMarketID"); err != nil {
		return nil, err
	}
	for _, d := range s.decisions {
		if d.MarketID == marketID {
			copy := d
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) InsertDecisionTx(tx *gorm.DB, d *models.Decision) error {
	if err := s.fail("InsertDecisionTx"); err != nil {
		return err
	}
	for _, existing := range s.decisions {
		if existing.MarketID == d.MarketID {
			return errors.New("duplicate key value violates unique constraint on decisions.market_id")
		}
	}
	s.nextDecisionID++
	d.ID = s.nextDecisionID
	d.CreatedAt = time.Now().UTC()
	s.decisions[d.ID] = *d
	return nil
}

func (s *stubRepo) ListRecentDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	out := make([]models.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Positions --------------------------------------------------------------

func (s *stubRepo) InsertPositionTx(tx *gorm.DB, p *models.Position) error {
	if err := s.fail("InsertPositionTx"); err != nil {
		return err
	}
	s.nextPositionID++
	p.ID = s.nextPositionID
	s.positions[p.ID] = *p
	return nil
}

func (s *stubRepo) GetPositionByID(ctx context.Context, id uint64) (*models.Position, error) {
	if p, ok := s.positions[id]; ok {
		copy := p
		return &copy, nil
	}
	return nil, nil
}

func (s *stubRepo) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	if err := s.fail("ListOpenPositions"); err != nil {
		return nil, err
	}
	var out []models.Position
	for _, p := range s.positions {
		if !p.Settled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListOpenPositionsByMarketTx(tx *gorm.DB, marketID uint64) ([]models.Position, error) {
	if err := s.fail("ListOpenPositionsByMarketTx"); err != nil {
		return nil, err
	}
	var out []models.Position
	for _, p := range s.positions {
		if p.MarketID == marketID && !p.Settled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) UpdatePositionPrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdatePositionPrice"); err != nil {
		return err
	}
	p, ok := s.positions[id]
	if !ok || p.Settled {
		return nil
	}
	p.CurrentPrice = &price
	s.positions[id] = p
	return nil
}

func (s *stubRepo) SettlePositionTx(tx *gorm.DB, id uint64, won *bool, payout int64, settledAt time.Time) error {
	if err := s.fail("SettlePositionTx"); err != nil {
		return err
	}
	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("position %d not found", id)
	}
	if p.Settled {
		return errors.New("position already settled")
	}
	p.Settled = true
	p.Won = won
	p.Payout = &payout
	p.SettledAt = &settledAt
	s.positions[id] = p
	return nil
}

func (s *stubRepo) ListPositionsByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.Position, error) {
	var out []models.Position
	for _, p := range s.positions {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) CountOpenPositions(ctx context.Context) (int64, error) {
	var n int64
	for _, p := range s.positions {
		if !p.Settled {
			n++
		}
	}
	return n, nil
}

// --- Users ------------------------------------------------------------------

func (s *stubRepo) addUser(u models.User) models.User {
	if u.ID == 0 {
		s.nextUserID++
		u.ID = s.nextUserID
	} else if u.ID > s.nextUserID {
		s.nextUserID = u.ID
	}
	s.users[u.ID] = u
	return u
}

func (s *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := u
		return &copy, nil
	}
	return nil, nil
}

func (s *stubRepo) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	wallet = strings.ToLower(wallet)
	for _, u := range s.users {
		if u.Wallet == wallet {
			copy := u
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetUserByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.User, error) {
	if err := s.fail("GetUserByIDForUpdateTx"); err != nil {
		return nil, err
	}
	if u, ok := s.users[id]; ok {
		copy := u
		return &copy, nil
	}
	return nil, nil
}

func (s *stubRepo) CreateUserTx(tx *gorm.DB, u *models.User) error {
	if err := s.fail("CreateUserTx"); err != nil {
		return err
	}
	u.Wallet = strings.ToLower(u.Wallet)
	for _, existing := range s.users {
		if existing.Wallet == u.Wallet {
			return errors.New("duplicate key value violates unique constraint on users.wallet")
		}
	}
	*u = s.addUser(*u)
	return nil
}

func (s *stubRepo) AddUserPointsTx(tx *gorm.DB, id uint64, delta int64) error {
	if err := s.fail("AddUserPointsTx"); err != nil {
		return err
	}
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.Points += delta
	s.users[id] = u
	return nil
}

func (s *stubRepo) IncrementUserBetsTx(tx *gorm.DB, id uint64) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.TotalBets++
	s.users[id] = u
	return nil
}

func (s *stubRepo) IncrementUserWinsTx(tx *gorm.DB, id uint64) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.TotalWins++
	s.users[id] = u
	return nil
}

func (s *stubRepo) UpdateUserCheckinTx(tx *gorm.DB, id uint64, at time.Time, streak int) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.LastCheckin = &at
	u.StreakDays = streak
	s.users[id] = u
	return nil
}

func (s *stubRepo) ListUsersByPoints(ctx context.Context, limit int) ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].TotalWins != out[j].TotalWins {
			return out[i].TotalWins > out[j].TotalWins
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func (s *stubRepo) SumUserPoints(ctx context.Context) (int64, error) {
	var total int64
	for _, u := range s.users {
		total += u.Points
	}
	return total, nil
}

// --- Ledger -----------------------------------------------------------------

func (s *stubRepo) InsertLedgerEntryTx(tx *gorm.DB, e *models.LedgerEntry) error {
	if err := s.fail("InsertLedgerEntryTx"); err != nil {
		return err
	}
	s.nextLedgerID++
	e.ID = s.nextLedgerID
	e.CreatedAt = time.Now().UTC()
	s.ledger = append(s.ledger, *e)
	return nil
}

func (s *stubRepo) ListLedgerEntries(ctx context.Context, f repository.LedgerFilter) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.ledger {
		if f.UserID != 0 && e.UserID != f.UserID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountLedgerEntries(ctx context.Context, f repository.LedgerFilter) (int64, error) {
	var n int64
	for _, e := range s.ledger {
		if f.UserID != 0 && e.UserID != f.UserID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		n++
	}
	return n, nil
}

func (s *stubRepo) SumLedgerByUser(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	for _, e := range s.ledger {
		if e.UserID == userID {
			total += e.Amount
		}
	}
	return total, nil
}

// --- Price snapshots --------------------------------------------------------

func (s *stubRepo) InsertPriceSnapshot(ctx context.Context, snap *models.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertPriceSnapshot"); err != nil {
		return err
	}
	snap.CreatedAt = time.Now().UTC()
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *stubRepo) ListPriceSnapshots(ctx context.Context, marketID uint64, limit int) ([]models.PriceSnapshot, error) {
	var out []models.PriceSnapshot
	for _, snap := range s.snapshots {
		if snap.MarketID == marketID {
			out = append(out, snap)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
