package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/incidents"
	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/pagination"
	"github.com/netwatch-dev/netwatch/internal/types"
	"github.com/netwatch-dev/netwatch/internal/utils"
)

type IncidentSummary struct {
	ID              uint       `json:"id"`
	RouterID        uint       `json:"router_id"`
	InterfaceName   string     `json:"interface_name"`
	IncidentType    string     `json:"incident_type"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	Message         string     `json:"message"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
	AckedAt         *time.Time `json:"acked_at"`
	AckedBy         *uint      `json:"acked_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	IsAutoEscalated bool       `json:"is_auto_escalated"`
	EscalatedAt     *time.Time `json:"escalated_at"`
	OwnerUserID     *uint      `json:"owner_user_id"`
	Notes           string     `json:"notes"`
	SLA             string     `json:"sla"`
}

type UpdateIncidentRequest struct {
	OwnerUserID *uint   `json:"owner_user_id"`
	Notes       *string `json:"notes"`
}

type BulkIncidentRequest struct {
	Op          string  `json:"op" binding:"required"`
	IDs         []uint  `json:"ids" binding:"required"`
	OwnerUserID *uint   `json:"owner_user_id"`
	Notes       *string `json:"notes"`
}

func newIncidentSummary(incident models.Incident, settings incidents.Settings, now time.Time) IncidentSummary {
	return IncidentSummary{
		ID:              incident.ID,
		RouterID:        incident.RouterID,
		InterfaceName:   incident.InterfaceName,
		IncidentType:    incident.IncidentType,
		Severity:        incident.Severity,
		Status:          incident.Status,
		Message:         incident.Message,
		FirstSeenAt:     incident.FirstSeenAt,
		LastSeenAt:      incident.LastSeenAt,
		AckedAt:         incident.AckedAt,
		AckedBy:         incident.AckedBy,
		ResolvedAt:      incident.ResolvedAt,
		IsAutoEscalated: incident.IsAutoEscalated,
		EscalatedAt:     incident.EscalatedAt,
		OwnerUserID:     incident.OwnerUserID,
		Notes:           incident.Notes,
		SLA:             incidents.Level(incident, settings, now),
	}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, incidents.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
	case errors.Is(err, incidents.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, incidents.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Incident engine error: %v", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable"})
	}
}

// ListIncidents returns the tenant's incidents, newest first, with optional
// status/severity/type/router_id/sla filters. The sla filter is translated
// into first_seen_at windows so it runs in the database.
func ListIncidents(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	page := pagination.Parse(ctx)
	if ctx.IsAborted() {
		return
	}

	settings, err := engine().EffectiveSettings(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	now := time.Now()
	query := db.DB.Model(&models.Incident{}).Where("tenant_id = ?", tenant.ID)

	if status := ctx.Query("status"); status != "" {
		if !types.ValidStatus(status) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		query = query.Where("status = ?", status)
	}

	if severity := ctx.Query("severity"); severity != "" {
		if !types.ValidSeverity(severity) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid severity filter"})
			return
		}
		query = query.Where("severity = ?", severity)
	}

	if incidentType := ctx.Query("type"); incidentType != "" {
		if !types.ValidIncidentType(incidentType) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type filter"})
			return
		}
		query = query.Where("incident_type = ?", incidentType)
	}

	if routerIDStr := ctx.Query("router_id"); routerIDStr != "" {
		routerID, err := strconv.ParseUint(routerIDStr, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid router_id filter"})
			return
		}
		query = query.Where("router_id = ?", routerID)
	}

	if sla := ctx.Query("sla"); sla != "" {
		warnCutoff := now.Add(-time.Duration(settings.WarnMinutes) * time.Minute)
		breachCutoff := now.Add(-time.Duration(settings.BreachMinutes) * time.Minute)

		switch sla {
		case types.SLABreach:
			query = query.Where("status <> ? AND first_seen_at <= ?", types.StatusResolved, breachCutoff)
		case types.SLAWarn:
			query = query.Where("status <> ? AND first_seen_at <= ? AND first_seen_at > ?",
				types.StatusResolved, warnCutoff, breachCutoff)
		case types.SLAOk:
			query = query.Where("status = ? OR first_seen_at > ?", types.StatusResolved, warnCutoff)
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sla filter"})
			return
		}
	}

	if err := query.Count(&page.Total).Error; err != nil {
		log.Printf("Failed to count incidents for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	var incidentRows []models.Incident
	if err := query.
		Order("first_seen_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&incidentRows).Error; err != nil {
		log.Printf("Failed to list incidents for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	summaries := make([]IncidentSummary, 0, len(incidentRows))
	for _, incident := range incidentRows {
		summaries = append(summaries, newIncidentSummary(incident, settings, now))
	}

	ctx.JSON(http.StatusOK, gin.H{"incidents": summaries, "pagination": page})
}

func AcknowledgeIncident(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	incidentID, err := utils.GetIncidentID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	incident, err := engine().Acknowledge(ctx.Request.Context(), tenant.ID, uint(incidentID), userID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	respondWithIncident(ctx, tenant.ID, incident)
}

func StartIncident(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	incidentID, err := utils.GetIncidentID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := engine().Start(ctx.Request.Context(), tenant.ID, uint(incidentID))
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	respondWithIncident(ctx, tenant.ID, incident)
}

func ResolveIncident(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	incidentID, err := utils.GetIncidentID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := engine().Resolve(ctx.Request.Context(), tenant.ID, uint(incidentID))
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	respondWithIncident(ctx, tenant.ID, incident)
}

// UpdateIncident assigns an owner and/or replaces the notes. Assignment is
// deliberately orthogonal to severity and escalation state.
func UpdateIncident(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	incidentID, err := utils.GetIncidentID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req UpdateIncidentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := engine().Assign(ctx.Request.Context(), tenant.ID, uint(incidentID), req.OwnerUserID, req.Notes)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	respondWithIncident(ctx, tenant.ID, incident)
}

// BulkIncidents applies ack/resolve/assign over a selection with
// best-effort-all semantics; the response carries per-bucket counts rather
// than a single pass/fail.
func BulkIncidents(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var req BulkIncidentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	result, err := engine().BulkApply(ctx.Request.Context(), tenant.ID, req.IDs,
		incidents.BulkOp(req.Op), userID, req.OwnerUserID, req.Notes)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	BroadcastRefresh(strconv.FormatUint(uint64(tenant.ID), 10))

	ctx.JSON(http.StatusOK, result)
}

// RunEscalation triggers the auto-escalation sweep for the tenant on demand.
func RunEscalation(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	escalated, err := engine().RunAutoEscalation(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	if escalated > 0 {
		BroadcastRefresh(strconv.FormatUint(uint64(tenant.ID), 10))
	}

	ctx.JSON(http.StatusOK, gin.H{"escalated": escalated})
}

func respondWithIncident(ctx *gin.Context, tenantID uint, incident models.Incident) {
	settings, err := engine().EffectiveSettings(ctx.Request.Context(), tenantID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	BroadcastRefresh(strconv.FormatUint(uint64(tenantID), 10))

	ctx.JSON(http.StatusOK, gin.H{"incident": newIncidentSummary(incident, settings, time.Now())})
}
