package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/models"
	"gorm.io/gorm/clause"
)

type UpsertRouterRequest struct {
	Name    string                 `json:"name" binding:"required"`
	Host    string                 `json:"host" binding:"required"`
	Port    int                    `json:"port" binding:"required"`
	Online  *bool                  `json:"online"`
	Metrics map[string]interface{} `json:"metrics"`
}

type RouterResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Host       string     `json:"host"`
	Port       int        `json:"port"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"last_seen_at"`
}

// UpsertRouter is the poller's registration/heartbeat endpoint: one row per
// (tenant, name), refreshed in place on conflict.
func UpsertRouter(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var req UpsertRouterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	online := true
	if req.Online != nil {
		online = *req.Online
	}

	now := time.Now()

	router := models.Router{
		TenantID:   tenant.ID,
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		Online:     online,
		LastSeenAt: &now,
	}

	if req.Metrics != nil {
		metricsJSON, err := json.Marshal(req.Metrics)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid metrics format"})
			return
		}
		router.LastMetrics = metricsJSON
	}

	if err := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"host", "port", "online", "last_seen_at", "last_metrics", "updated_at"}),
	}).Create(&router).Error; err != nil {
		log.Printf("Failed to upsert router %q for tenant %d: %v", req.Name, tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upsert router"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Router upserted successfully", "router_id": router.ID})
}

func ListRouters(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var routers []models.Router
	if err := db.DB.Where("tenant_id = ?", tenant.ID).Order("name").Find(&routers).Error; err != nil {
		log.Printf("Failed to list routers for tenant %d: %v", tenant.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve routers"})
		return
	}

	responses := make([]RouterResponse, 0, len(routers))
	for _, router := range routers {
		responses = append(responses, RouterResponse{
			ID:         router.ID,
			Name:       router.Name,
			Host:       router.Host,
			Port:       router.Port,
			Online:     router.Online,
			LastSeenAt: router.LastSeenAt,
		})
	}

	ctx.JSON(http.StatusOK, responses)
}
