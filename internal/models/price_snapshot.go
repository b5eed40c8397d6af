package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is an append-only record of the midpoint prices observed for
// a market during a refresh cycle. Written best-effort; a snapshot failure
// never fails the position update it accompanies.
type PriceSnapshot struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID uint64 `gorm:"not null;index"`

	YesPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	NoPrice  decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (PriceSnapshot) TableName() string {
	return "price_snapshots"
}
