package models

import (
	"time"

	"gorm.io/gorm"
)

// AlertEvent is the audit trail of raw alerts as reported by the pollers.
// The engine never reads these back; they exist so a breached incident can
// be traced to the alerts that kept it alive.
type AlertEvent struct {
	gorm.Model

	TenantID      uint   `gorm:"not null;index"`
	RouterID      uint   `gorm:"not null;index"`
	InterfaceName string
	IncidentType  string `gorm:"not null"`
	Severity      string `gorm:"not null"`
	Message       string
	ReportedAt    time.Time `gorm:"not null"`

	IncidentID   uint `gorm:"not null;index"`
	Deduplicated bool `gorm:"not null;default:false"` // true when folded into an existing incident

	// Relationships
	Incident Incident `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
