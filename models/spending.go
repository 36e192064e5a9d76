package models

import "time"

// SpendingRecord is an append-only audit fact for one billed request.
// Costs are in nanodollars. The admission path never reads these back;
// they feed the expenditure reports.
type SpendingRecord struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	User         uint64    `gorm:"index;not null" json:"user"`
	Cost         int64     `gorm:"not null" json:"cost"`
	InputTokens  uint32    `gorm:"not null" json:"input_tokens"`
	OutputTokens uint32    `gorm:"not null" json:"output_tokens"`
	Model        string    `gorm:"not null" json:"model"`
	CreatedAt    time.Time `gorm:"column:time" json:"time"`
}

func (SpendingRecord) TableName() string {
	return "spending"
}
