package models

import "time"

// Ledger entry types. Every balance mutation writes exactly one entry of one
// of these types in the same transaction as the mutation itself.
const (
	LedgerSignup          = "signup"
	LedgerStakePlaced     = "stake_placed"
	LedgerStakeWon        = "stake_won"
	LedgerStakeRefunded   = "stake_refunded"
	LedgerAdminAdjustment = "admin_adjustment"
	LedgerCheckin         = "checkin"
)

// LedgerEntry is an immutable, signed record of a points-balance change.
// Entries are append-only and never deleted; the sum of a user's entries
// always equals the cached balance on the user row.
type LedgerEntry struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	Wallet string `gorm:"type:varchar(64);not null;index"`

	Amount int64  `gorm:"not null"`
	Type   string `gorm:"type:varchar(30);not null;index"`
	Reason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (LedgerEntry) TableName() string {
	return "points_ledger"
}
