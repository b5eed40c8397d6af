package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pointstake/internal/models"
)

// EligibleMarketsFilter narrows the market scan used by the decision cycle.
type EligibleMarketsFilter struct {
	Category  string
	Now       time.Time
	MaxEnd    time.Time
	MinVolume decimal.Decimal
	Limit     int
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	UserID uint64
	Type   string
	Limit  int
	Offset int
}

// Repository is the persistence boundary. Methods with a Tx suffix run
// inside a transaction started by InTx and must only be called from there.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Markets
	UpsertMarket(ctx context.Context, m *models.Market) error
	GetMarketByID(ctx context.Context, id uint64) (*models.Market, error)
	GetMarketByExternalID(ctx context.Context, externalID string) (*models.Market, error)
	GetMarketByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.Market, error)
	ListEligibleMarkets(ctx context.Context, f EligibleMarketsFilter) ([]models.Market, error)
	ListMarketsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Market, error)
	ListMarketsByIDs(ctx context.Context, ids []uint64) ([]models.Market, error)
	SearchMarkets(ctx context.Context, query string, limit int) ([]models.Market, error)
	MarkMarketResolvedTx(tx *gorm.DB, id uint64, outcome string) error
	CountMarkets(ctx context.Context) (int64, error)

	// Decisions
	GetDecisionByMarketID(ctx context.Context, marketID uint64) (*models.Decision, error)
	InsertDecisionTx(tx *gorm.DB, d *models.Decision) error
	ListRecentDecisions(ctx context.Context, limit int) ([]models.Decision, error)

	// Positions
	InsertPositionTx(tx *gorm.DB, p *models.Position) error
	GetPositionByID(ctx context.Context, id uint64) (*models.Position, error)
	ListOpenPositions(ctx context.Context) ([]models.Position, error)
	ListOpenPositionsByMarketTx(tx *gorm.DB, marketID uint64) ([]models.Position, error)
	UpdatePositionPrice(ctx context.Context, id uint64, price decimal.Decimal) error
	SettlePositionTx(tx *gorm.DB, id uint64, won *bool, payout int64, settledAt time.Time) error
	ListPositionsByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.Position, error)
	CountOpenPositions(ctx context.Context) (int64, error)

	// Users
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByWallet(ctx context.Context, wallet string) (*models.User, error)
	GetUserByIDForUpdateTx(tx *gorm.DB, id uint64) (*models.User, error)
	CreateUserTx(tx *gorm.DB, u *models.User) error
	AddUserPointsTx(tx *gorm.DB, id uint64, delta int64) error
	IncrementUserBetsTx(tx *gorm.DB, id uint64) error
	IncrementUserWinsTx(tx *gorm.DB, id uint64) error
	UpdateUserCheckinTx(tx *gorm.DB, id uint64, at time.Time, streak int) error
	ListUsersByPoints(ctx context.Context, limit int) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	SumUserPoints(ctx context.Context) (int64, error)

	// Ledger
	InsertLedgerEntryTx(tx *gorm.DB, e *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, f LedgerFilter) ([]models.LedgerEntry, error)
	CountLedgerEntries(ctx context.Context, f LedgerFilter) (int64, error)
	SumLedgerByUser(ctx context.Context, userID uint64) (int64, error)

	// Price snapshots
	InsertPriceSnapshot(ctx context.Context, s *models.PriceSnapshot) error
	ListPriceSnapshots(ctx context.Context, marketID uint64, limit int) ([]models.PriceSnapshot, error)
}
