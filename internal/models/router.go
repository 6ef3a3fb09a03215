package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Router is a reference record for a polled device. The polling service owns
// the data; this service only reads it and attaches incidents to it.
type Router struct {
	gorm.Model

	TenantID uint   `gorm:"not null;uniqueIndex:idx_tenant_router_name"`
	Name     string `gorm:"not null;uniqueIndex:idx_tenant_router_name"`
	Host     string `gorm:"not null"`
	Port     int    `gorm:"not null"`
	Online   bool   `gorm:"default:true"`

	LastSeenAt  *time.Time
	LastMetrics datatypes.JSON `gorm:"type:jsonb"` // latest poller snapshot (cpu, latency, interfaces)

	// Relationships
	Tenant    Tenant     `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Incidents []Incident `gorm:"foreignKey:RouterID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
