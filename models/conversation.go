package models

import "time"

// Conversation is one exchange node in the reply graph, keyed by the id of
// the outbound message that carried the response. Parent links form a
// forest; severing a parent sets it to NULL without touching children.
type Conversation struct {
	Message       uint64        `gorm:"primaryKey" json:"message"`
	Parent        *uint64       `gorm:"index" json:"parent,omitempty"`
	ParentNode    *Conversation `gorm:"foreignKey:Parent;references:Message;constraint:OnDelete:SET NULL" json:"-"`
	Input         string        `gorm:"not null" json:"input"`
	Output        string        `gorm:"not null" json:"output"`
	SystemMessage *string       `json:"system_message,omitempty"`
	CreatedAt     time.Time     `gorm:"column:time" json:"time"`
}

func (Conversation) TableName() string {
	return "conversations"
}
