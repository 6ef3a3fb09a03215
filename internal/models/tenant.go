package models

import "gorm.io/gorm"

type Tenant struct {
	gorm.Model

	Name    string `gorm:"not null"`
	Slug    string `gorm:"uniqueIndex;not null"`
	OwnerID uint   `gorm:"not null;index"`

	// Webhook destinations for incident notifications
	SlackWebhook   string
	DiscordWebhook string

	// Relationships
	Owner             User               `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	TenantMemberships []TenantMembership `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Routers           []Router           `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Incidents         []Incident         `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
