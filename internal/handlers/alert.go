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
	"gorm.io/gorm"
)

type ReportAlertRequest struct {
	RouterID      uint      `json:"router_id" binding:"required"`
	InterfaceName string    `json:"interface_name"`
	IncidentType  string    `json:"incident_type" binding:"required"`
	Severity      string    `json:"severity" binding:"required"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReportAlert is the inbound contract for router pollers. Repeated alerts
// for the same (router, interface, type) tuple fold into the open incident.
func ReportAlert(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var req ReportAlertRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var router models.Router
	if err := db.DB.Where("id = ? AND tenant_id = ?", req.RouterID, tenant.ID).First(&router).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Router not found"})
		} else {
			log.Printf("Failed to load router %d: %v", req.RouterID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve router"})
		}
		return
	}

	incident, created, err := engine().ReportAlert(ctx.Request.Context(), tenant.ID, incidents.RawAlert{
		RouterID:      req.RouterID,
		InterfaceName: req.InterfaceName,
		IncidentType:  req.IncidentType,
		Severity:      req.Severity,
		Message:       req.Message,
		Timestamp:     req.Timestamp,
	})

	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	BroadcastRefresh(strconv.FormatUint(uint64(tenant.ID), 10))

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	ctx.JSON(status, gin.H{"incident_id": incident.ID, "created": created})
}

// SimulateIncident injects a synthetic alert through the same dedup path,
// for demos and operator drills.
func SimulateIncident(ctx *gin.Context) {
	tenant := requireTenant(ctx)
	if tenant == nil {
		return
	}

	var req ReportAlertRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Message == "" {
		req.Message = "simulated incident"
	}

	incident, created, err := engine().ReportAlert(ctx.Request.Context(), tenant.ID, incidents.RawAlert{
		RouterID:      req.RouterID,
		InterfaceName: req.InterfaceName,
		IncidentType:  req.IncidentType,
		Severity:      req.Severity,
		Message:       req.Message,
		Timestamp:     req.Timestamp,
	})

	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	BroadcastRefresh(strconv.FormatUint(uint64(tenant.ID), 10))

	ctx.JSON(http.StatusCreated, gin.H{"incident_id": incident.ID, "created": created})
}
