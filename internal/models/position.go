package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a stake held on one side of a market. UserID is nil for
// positions opened by the decision engine; those never touch the points
// ledger at settlement time.
type Position struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`
	MarketID uint64  `gorm:"not null;index"`
	UserID   *uint64 `gorm:"index"`

	Side       string          `gorm:"type:varchar(10);not null"`
	Stake      int64           `gorm:"not null"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	// CurrentPrice stays nil until the first successful price refresh.
	CurrentPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`

	// AgreeWithAI records whether a user position sided with the engine's
	// decision; nil for engine positions.
	AgreeWithAI *bool `gorm:"default:null"`

	// Settled is a one-way transition. Once true, Won and Payout are final.
	Settled   bool       `gorm:"not null;default:false;index"`
	Won       *bool      `gorm:"default:null"`
	Payout    *int64     `gorm:"default:null"`
	SettledAt *time.Time `gorm:"type:timestamptz"`

	PlacedAt  time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}

// System reports whether the position is held by the decision engine rather
// than a user account.
func (p *Position) System() bool {
	return p.UserID == nil
}
