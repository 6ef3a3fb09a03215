package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/incidents"
	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/scheduler"
	"github.com/netwatch-dev/netwatch/internal/services"
	"github.com/netwatch-dev/netwatch/internal/utils"
	"gorm.io/gorm"
)

type CreateTenantRequest struct {
	Name           string `json:"name" binding:"required"`
	Slug           string `json:"slug" binding:"required"`
	SlackWebhook   string `json:"slack_webhook"`
	DiscordWebhook string `json:"discord_webhook"`
}

type TenantResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// engine builds the incident engine over the shared connection. It is cheap
// enough to construct per request.
func engine() *incidents.Engine {
	return incidents.New(db.DB, services.NewNotifier(db.DB))
}

// requireTenant resolves the tenant and checks that the current user owns it
// or is a member. Writes the error response itself; callers bail on nil.
func requireTenant(ctx *gin.Context) *models.Tenant {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil
	}

	tenantID, err := utils.GetTenantID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil
	}

	var tenant models.Tenant

	if err := db.DB.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		} else {
			log.Printf("Failed to load tenant %d: %v", tenantID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tenant"})
		}
		return nil
	}

	if tenant.OwnerID == userID {
		return &tenant
	}

	var membership models.TenantMembership
	if err := db.DB.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&membership).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return nil
	}

	return &tenant
}

func CreateTenant(ctx *gin.Context) {
	var req CreateTenantRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	tenant := models.Tenant{
		Name:           req.Name,
		Slug:           strings.ToLower(strings.TrimSpace(req.Slug)),
		OwnerID:        userID,
		SlackWebhook:   req.SlackWebhook,
		DiscordWebhook: req.DiscordWebhook,
	}

	if err := db.DB.Create(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Slug already exists"})
			return
		}
		log.Printf("Failed to create tenant: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}

	membership := models.TenantMembership{
		UserID:   userID,
		TenantID: tenant.ID,
		Role:     "owner",
	}

	if err := db.DB.Create(&membership).Error; err != nil {
		log.Printf("Failed to create owner membership for tenant %d: %v", tenant.ID, err)
	}

	// New tenants get their SLA sweep job immediately.
	scheduler.AddTenant(tenant.ID)

	ctx.JSON(http.StatusCreated, gin.H{"message": "Tenant created successfully", "tenant_id": tenant.ID})
}

func ListTenants(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var tenants []models.Tenant

	if err := db.DB.
		Joins("LEFT JOIN tenant_memberships ON tenant_memberships.tenant_id = tenants.id AND tenant_memberships.deleted_at IS NULL").
		Where("tenants.owner_id = ? OR tenant_memberships.user_id = ?", userID, userID).
		Distinct("tenants.*").
		Find(&tenants).Error; err != nil {
		log.Printf("Failed to list tenants for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tenants"})
		return
	}

	responses := make([]TenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		responses = append(responses, TenantResponse{ID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug})
	}

	ctx.JSON(http.StatusOK, responses)
}
