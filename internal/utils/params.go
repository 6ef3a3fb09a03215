package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetTenantID(ctx *gin.Context) (uint64, error) {
	var err error

	tenantIDStr := ctx.Param("tenant_id")

	if tenantIDStr == "" {
		return 0, errors.New("Tenant ID not found")
	}

	tenantID, err := strconv.ParseUint(tenantIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Tenant ID")
	}

	return tenantID, nil
}

func GetIncidentID(ctx *gin.Context) (uint64, error) {
	var err error

	incidentIDStr := ctx.Param("incident_id")

	if incidentIDStr == "" {
		return 0, errors.New("Incident ID not found")
	}

	incidentID, err := strconv.ParseUint(incidentIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Incident ID")
	}

	return incidentID, nil
}
