package models

// UserSettings holds optional per-user overrides, last write wins.
// Model applies to the next request only and is cleared when consumed.
// SystemMessage names a personality (or carries a custom one) for new
// conversation roots started by this user.
type UserSettings struct {
	User          uint64   `gorm:"primaryKey" json:"user"`
	Temperature   *float32 `json:"temperature,omitempty"`
	MaxTokens     *uint32  `json:"max_tokens,omitempty"`
	Model         *string  `json:"model,omitempty"`
	SystemMessage *string  `json:"system_message,omitempty"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
