package models

import "gorm.io/gorm"

type TenantMembership struct {
	gorm.Model

	UserID   uint   `gorm:"not null;uniqueIndex:idx_user_tenant"`
	TenantID uint   `gorm:"not null;uniqueIndex:idx_user_tenant"`
	Role     string `gorm:"not null"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
