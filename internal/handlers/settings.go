package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/models"
	"gorm.io/gorm/clause"
)

type UpdateSettingsRequest struct {
	SLAWarnMinutes         int   `json:"sla_warn_minutes" binding:"required,min=1"`
	SLABreachMinutes       int   `json:"sla_breach_minutes" binding:"required,min=1"`
	AssignmentEmailEnabled *bool `json:"assignment_email_enabled" binding:"required"`
}

// GetSettings returns the tenant's effective SLA policy, defaults and
// clamping already applied.
func GetSettings(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	settings, err := engine().EffectiveSettings(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings upserts the tenant's settings row. Stored values are kept
// as submitted; clamping of a breach threshold below warn happens on read,
// so a later fix to warn does not need a second write.
func UpdateSettings(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var req UpdateSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setting := models.TenantSetting{
		TenantID:               tenant.ID,
		SLAWarnMinutes:         req.SLAWarnMinutes,
		SLABreachMinutes:       req.SLABreachMinutes,
		AssignmentEmailEnabled: *req.AssignmentEmailEnabled,
	}

	if err := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sla_warn_minutes", "sla_breach_minutes", "assignment_email_enabled", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		log.Printf("Failed to upsert settings for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	settings, err := engine().EffectiveSettings(ctx.Request.Context(), tenant.ID)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, settings)
}
