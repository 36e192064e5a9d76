package dao

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Pulau-Komodo/chatbot/models"
)

// AllowanceDAO handles allowance-related database operations.
type AllowanceDAO struct {
	db *gorm.DB
}

func NewAllowanceDAO(db *gorm.DB) *AllowanceDAO {
	return &AllowanceDAO{db: db}
}

// GetTimeToFull retrieves the stored time_to_full for a user. A nil result
// means no row exists yet, which is equivalent to a full balance.
func (d *AllowanceDAO) GetTimeToFull(user uint64) (*time.Time, error) {
	var allowance models.Allowance
	err := d.db.Where(byUser, user).First(&allowance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &allowance.TimeToFull, nil
}

// SetTimeToFull upserts the user's time_to_full. Rows are created lazily on
// the first debit and never deleted.
func (d *AllowanceDAO) SetTimeToFull(user uint64, timeToFull time.Time) error {
	allowance := models.Allowance{User: user, TimeToFull: timeToFull}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user"}},
		DoUpdates: clause.AssignmentColumns([]string{"time_to_full"}),
	}).Create(&allowance).Error
}
