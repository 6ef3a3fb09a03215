package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/incidents"
	"github.com/netwatch-dev/netwatch/internal/models"
)

type DashboardResponse struct {
	Tenant          TenantResponse    `json:"tenant"`
	RoutersSummary  RoutersSummary    `json:"routers_summary"`
	Metrics         incidents.Metrics `json:"metrics"`
	RecentIncidents []IncidentSummary `json:"recent_incidents"`
}

type RoutersSummary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}

// GetDashboard aggregates the tenant's operational picture: router health,
// incident KPIs (MTTA/MTTR, breach count) and the latest incidents.
func GetDashboard(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var routers []models.Router
	if err := db.DB.Where("tenant_id = ?", tenant.ID).Find(&routers).Error; err != nil {
		log.Printf("Failed to load routers for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve routers"})
		return
	}

	routersSummary := RoutersSummary{Total: len(routers)}
	for _, router := range routers {
		if router.Online {
			routersSummary.Online++
		} else {
			routersSummary.Offline++
		}
	}

	eng := engine()

	metrics, err := eng.ComputeMetrics(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	settings, err := eng.EffectiveSettings(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	var recent []models.Incident
	if err := db.DB.Where("tenant_id = ?", tenant.ID).
		Order("first_seen_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		log.Printf("Failed to load recent incidents for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	now := time.Now()
	summaries := make([]IncidentSummary, 0, len(recent))
	for _, incident := range recent {
		summaries = append(summaries, newIncidentSummary(incident, settings, now))
	}

	ctx.JSON(http.StatusOK, DashboardResponse{
		Tenant:          TenantResponse{ID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug},
		RoutersSummary:  routersSummary,
		Metrics:         metrics,
		RecentIncidents: summaries,
	})
}
