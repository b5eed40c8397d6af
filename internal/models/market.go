package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Market outcomes. A market with Resolved=true carries exactly one of these;
// an unresolved market has Outcome=nil.
const (
	OutcomeYes       = "YES"
	OutcomeNo        = "NO"
	OutcomeCancelled = "CANCELLED"
)

const (
	SideYes = "YES"
	SideNo  = "NO"
)

type Market struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ExternalID  string `gorm:"type:text;not null;uniqueIndex"`
	Question    string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"type:varchar(50);not null;index"`

	YesTokenID string `gorm:"type:text;not null"`
	NoTokenID  string `gorm:"type:text;not null"`

	EndTime   time.Time       `gorm:"type:timestamptz;not null;index"`
	Volume    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0;index"`
	Liquidity decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	// Resolution state is written only by the settlement engine and is
	// immutable once Resolved is true.
	Resolved bool    `gorm:"not null;default:false;index"`
	Outcome  *string `gorm:"type:varchar(10)"`

	RawJSON   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}
