package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision is the engine's staking decision for one market. The unique index
// on MarketID enforces at most one decision (and therefore one engine
// position) per market.
type Decision struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID   uint64 `gorm:"not null;uniqueIndex"`
	PositionID uint64 `gorm:"not null"`

	Side       string  `gorm:"type:varchar(10);not null"`
	Confidence float64 `gorm:"not null"`

	// Probability is the estimator's probability oriented to the chosen side.
	Probability   decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	EntryPrice    decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	ExpectedValue decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Edge          decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	Rationale string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Decision) TableName() string {
	return "decisions"
}
