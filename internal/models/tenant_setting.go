package models

import "gorm.io/gorm"

// TenantSetting holds the per-tenant SLA policy and notification switches.
// Absent rows fall back to the defaults in the incidents package.
type TenantSetting struct {
	gorm.Model

	TenantID               uint `gorm:"not null;uniqueIndex"`
	SLAWarnMinutes         int  `gorm:"not null;default:30"`
	SLABreachMinutes       int  `gorm:"not null;default:120"`
	AssignmentEmailEnabled bool `gorm:"not null;default:false"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
