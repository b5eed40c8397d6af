package models

import "time"

type User struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Wallet string `gorm:"type:varchar(64);not null;uniqueIndex"`

	// Points is the cached balance, kept equal to the ledger-entry sum by
	// construction: every mutator updates both in one transaction.
	Points int64 `gorm:"not null;default:0"`

	TotalBets int64 `gorm:"not null;default:0"`
	TotalWins int64 `gorm:"not null;default:0"`

	StreakDays  int        `gorm:"not null;default:0"`
	LastCheckin *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
