package dao

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Pulau-Komodo/chatbot/models"
)

// UserSettingsDAO handles per-user override storage, last write wins.
type UserSettingsDAO struct {
	db *gorm.DB
}

func NewUserSettingsDAO(db *gorm.DB) *UserSettingsDAO {
	return &UserSettingsDAO{db: db}
}

// Get retrieves a user's settings. A nil result means the user has never
// set anything, which is indistinguishable from all-defaults.
func (d *UserSettingsDAO) Get(user uint64) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := d.db.Where(byUser, user).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// SetModel upserts the one-shot model override. nil clears it.
func (d *UserSettingsDAO) SetModel(user uint64, model *string) error {
	return d.upsert("model", models.UserSettings{User: user, Model: model})
}

// SetSystemMessage upserts the personality setting for new conversation
// roots. nil resets to the default personality.
func (d *UserSettingsDAO) SetSystemMessage(user uint64, systemMessage *string) error {
	return d.upsert("system_message", models.UserSettings{User: user, SystemMessage: systemMessage})
}

// SetSampling upserts the temperature and max token overrides.
func (d *UserSettingsDAO) SetSampling(user uint64, temperature *float32, maxTokens *uint32) error {
	settings := models.UserSettings{User: user, Temperature: temperature, MaxTokens: maxTokens}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user"}},
		DoUpdates: clause.AssignmentColumns([]string{"temperature", "max_tokens"}),
	}).Create(&settings).Error
}

// ConsumeModel reads the stored model override and clears it if set, so the
// override applies to exactly one request.
func (d *UserSettingsDAO) ConsumeModel(user uint64) (*string, error) {
	settings, err := d.Get(user)
	if err != nil {
		return nil, err
	}
	if settings == nil || settings.Model == nil {
		return nil, nil
	}
	if err := d.SetModel(user, nil); err != nil {
		return nil, err
	}
	return settings.Model, nil
}

func (d *UserSettingsDAO) upsert(column string, settings models.UserSettings) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user"}},
		DoUpdates: clause.AssignmentColumns([]string{column}),
	}).Create(&settings).Error
}
