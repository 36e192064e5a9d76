package dao

import (
	"gorm.io/gorm"

	"github.com/Pulau-Komodo/chatbot/models"
)

// SpendingDAO handles the append-only spending audit trail.
type SpendingDAO struct {
	db *gorm.DB
}

func NewSpendingDAO(db *gorm.DB) *SpendingDAO {
	return &SpendingDAO{db: db}
}

// Record writes one spending fact. Write-once; nothing updates these rows.
func (d *SpendingDAO) Record(user uint64, cost int64, inputTokens, outputTokens uint32, model string) error {
	record := &models.SpendingRecord{
		User:         user,
		Cost:         cost,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Model:        model,
	}
	return d.db.Create(record).Error
}

// SumForUser totals one user's spending in nanodollars.
func (d *SpendingDAO) SumForUser(user uint64) (int64, error) {
	var total int64
	err := d.db.Model(&models.SpendingRecord{}).
		Where(byUser, user).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&total).Error
	return total, err
}

// SumAll totals everyone's spending in nanodollars.
func (d *SpendingDAO) SumAll() (int64, error) {
	var total int64
	err := d.db.Model(&models.SpendingRecord{}).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&total).Error
	return total, err
}
