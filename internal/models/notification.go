package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification records one assignment/escalation dispatch attempt.
type Notification struct {
	gorm.Model

	IncidentID uint   `gorm:"not null;index"`
	UserID     uint   `gorm:"not null;index"`
	Channel    string `gorm:"not null"` // "slack", "discord"
	Status     string `gorm:"not null"` // "sent", "failed"
	Message    string
	Token      string `gorm:"uniqueIndex;not null"` // dispatch id, for log correlation
	SentAt     *time.Time

	// Relationships
	Incident Incident `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	User     User     `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
