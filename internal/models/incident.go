package models

import (
	"time"

	"gorm.io/gorm"
)

// Incident is one deduplicated operational problem on a router (or one of
// its interfaces). At most one non-resolved incident exists per
// (tenant, router, interface, type) tuple; DedupKey enforces that at the
// database level and is retired (suffixed with the incident id) on resolve
// so a later alert for the same tuple opens a fresh row.
type Incident struct {
	gorm.Model

	TenantID      uint   `gorm:"not null;index"`
	RouterID      uint   `gorm:"not null;index"`
	InterfaceName string // empty for router-level incidents
	IncidentType  string `gorm:"not null"`
	Severity      string `gorm:"not null"`
	Status        string `gorm:"not null;index"`
	Message       string

	DedupKey string `gorm:"uniqueIndex;not null"`

	FirstSeenAt time.Time `gorm:"not null;index"`
	LastSeenAt  time.Time `gorm:"not null"`
	AckedAt     *time.Time
	AckedBy     *uint
	ResolvedAt  *time.Time

	IsAutoEscalated bool `gorm:"not null;default:false"`
	EscalatedAt     *time.Time

	OwnerUserID *uint `gorm:"index"`
	Notes       string

	// Relationships
	Tenant        Tenant         `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Router        Router         `gorm:"foreignKey:RouterID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications []Notification `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
