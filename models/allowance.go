package models

import "time"

// Allowance is the single row of ledger state per user. The balance itself
// is never stored; it is derived from how far in the future TimeToFull lies.
type Allowance struct {
	User       uint64    `gorm:"primaryKey" json:"user"`
	TimeToFull time.Time `gorm:"not null" json:"time_to_full"`
}

func (Allowance) TableName() string {
	return "allowances"
}
