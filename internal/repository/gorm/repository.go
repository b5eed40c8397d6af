package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pointstake/internal/models"
	"pointstake/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Markets ----------------------------------------------------------------

func (s *Store) UpsertMarket(ctx context.Context, m *models.Market) error {
	if s == nil || s.db == nil || m == nil {
		return nil
	}
	if strings.TrimSpace(m.ExternalID) == "" {
		return errors.New("market external_id is required")
	}
	// Resolution state is owned by settlement; ingest never touches it.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question",
			"description",
			"category",
			"volume",
			"liquidity",
			"raw_json",
			"updated_at",
		}),
	}).Create(m).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetMarketByExternalID(ctx context.Context, externalID string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "external_id = ?", externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetMarketByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.Market, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Market
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListEligibleMarkets(ctx context.Context, f repository.EligibleMarketsFilter) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	query := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("resolved = ?", false).
		Where("end_time > ?", now)
	if !f.MaxEnd.IsZero() {
		query = query.Where("end_time <= ?", f.MaxEnd)
	}
	if strings.TrimSpace(f.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(f.Category))
	}
	if f.MinVolume.IsPositive() {
		query = query.Where("volume >= ?", f.MinVolume)
	}
	limit := normalizeLimit(f.Limit, 200)
	var items []models.Market
	if err := query.Order("volume desc, created_at desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMarketsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	limit = normalizeLimit(limit, 200)
	var items []models.Market
	if err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("resolved = ?", false).
		Where("end_time <= ?", now).
		Order("end_time asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMarketsByIDs(ctx context.Context, ids []uint64) ([]models.Market, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Market
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SearchMarkets(ctx context.Context, query string, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	q := s.db.WithContext(ctx).Model(&models.Market{})
	if term := strings.TrimSpace(query); term != "" {
		pattern := "%" + term + "%"
		q = q.Where("question ILIKE ? OR description ILIKE ? OR category ILIKE ?", pattern, pattern, pattern)
	}
	var items []models.Market
	if err := q.Order("volume desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkMarketResolvedTx(tx *gorm.DB, id uint64, outcome string) error {
	if tx == nil {
		return nil
	}
	return tx.Model(&models.Market{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":   true,
			"outcome":    outcome,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) CountMarkets(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Market{}).Count(&count).Error
	return count, err
}

// --- Decisions --------------------------------------------------------------

func (s *Store) GetDecisionByMarketID(ctx context.Context, marketID uint64) (*models.Decision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Decision
	err := s.db.WithContext(ctx).First(&item, "market_id = ?", marketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertDecisionTx(tx *gorm.DB, d *models.Decision) error {
	if tx == nil || d == nil {
		return nil
	}
	return tx.Create(d).Error
}

func (s *Store) ListRecentDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Decision
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Positions --------------------------------------------------------------

func (s *Store) InsertPositionTx(tx *gorm.DB, p *models.Position) error {
	if tx == nil || p == nil {
		return nil
	}
	return tx.Create(p).Error
}

func (s *Store) GetPositionByID(ctx context.Context, id uint64) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Position
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Where("settled = ?", false).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOpenPositionsByMarketTx(tx *gorm.DB, marketID uint64) ([]models.Position, error) {
	if tx == nil {
		return nil, nil
	}
	var items []models.Position
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("market_id = ?", marketID).
		Where("settled = ?", false).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdatePositionPrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", id).
		Where("settled = ?", false).
		Updates(map[string]any{
			"current_price": price,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (s *Store) SettlePositionTx(tx *gorm.DB, id uint64, won *bool, payout int64, settledAt time.Time) error {
	if tx == nil {
		return nil
	}
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	res := tx.Model(&models.Position{}).
		Where("id = ?", id).
		Where("settled = ?", false).
		Updates(map[string]any{
			"settled":    true,
			"won":        won,
			"payout":     payout,
			"settled_at": settledAt,
			"updated_at": settledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("position already settled")
	}
	return nil
}

func (s *Store) ListPositionsByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	offset = normalizeOffset(offset)
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOpenPositions(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Position{}).
		Where("settled = ?", false).
		Count(&count).Error
	return count, err
}

// --- Users ------------------------------------------------------------------

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "wallet = ?", strings.ToLower(wallet)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.User, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateUserTx(tx *gorm.DB, u *models.User) error {
	if tx == nil || u == nil {
		return nil
	}
	u.Wallet = strings.ToLower(u.Wallet)
	return tx.Create(u).Error
}

func (s *Store) AddUserPointsTx(tx *gorm.DB, id uint64, delta int64) error {
	if tx == nil || delta == 0 {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"points":     gorm.Expr("points + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) IncrementUserBetsTx(tx *gorm.DB, id uint64) error {
	if tx == nil {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ?", id).
		Update("total_bets", gorm.Expr("total_bets + 1")).Error
}

func (s *Store) IncrementUserWinsTx(tx *gorm.DB, id uint64) error {
	if tx == nil {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ?", id).
		Update("total_wins", gorm.Expr("total_wins + 1")).Error
}

func (s *Store) UpdateUserCheckinTx(tx *gorm.DB, id uint64, at time.Time, streak int) error {
	if tx == nil {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_checkin": at,
			"streak_days":  streak,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (s *Store) ListUsersByPoints(ctx context.Context, limit int) ([]models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.User
	if err := s.db.WithContext(ctx).
		Order("points desc, total_wins desc, id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (s *Store) SumUserPoints(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

// --- Ledger -----------------------------------------------------------------

func (s *Store) InsertLedgerEntryTx(tx *gorm.DB, e *models.LedgerEntry) error {
	if tx == nil || e == nil {
		return nil
	}
	return tx.Create(e).Error
}

func (s *Store) ListLedgerEntries(ctx context.Context, f repository.LedgerFilter) ([]models.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if strings.TrimSpace(f.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(f.Type))
	}
	limit := normalizeLimit(f.Limit, 50)
	offset := normalizeOffset(f.Offset)
	var items []models.LedgerEntry
	if err := query.
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountLedgerEntries(ctx context.Context, f repository.LedgerFilter) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if strings.TrimSpace(f.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(f.Type))
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (s *Store) SumLedgerByUser(ctx context.Context, userID uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// --- Price snapshots --------------------------------------------------------

func (s *Store) InsertPriceSnapshot(ctx context.Context, snap *models.PriceSnapshot) error {
	if s == nil || s.db == nil || snap == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(snap).Error
}

func (s *Store) ListPriceSnapshots(ctx context.Context, marketID uint64, limit int) ([]models.PriceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.PriceSnapshot
	if err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
