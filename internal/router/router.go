package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/netwatch-dev/netwatch/internal/handlers"
	"github.com/netwatch-dev/netwatch/internal/middleware"
	"github.com/netwatch-dev/netwatch/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/:tenant_id", middleware.AuthMiddleware(), handlers.WebSocket)
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		tenants := api.Group("/tenants", middleware.AuthMiddleware())
		{
			tenants.POST("", handlers.CreateTenant)
			tenants.GET("", handlers.ListTenants)

			// Dashboard endpoint
			tenants.GET("/:tenant_id/dashboard", handlers.GetDashboard)

			// Router reference records (poller registration/heartbeat)
			tenants.POST("/:tenant_id/routers", handlers.UpsertRouter)
			tenants.GET("/:tenant_id/routers", handlers.ListRouters)

			// Alert ingest
			tenants.POST("/:tenant_id/alerts/report", handlers.ReportAlert)

			// Incident lifecycle
			tenants.GET("/:tenant_id/incidents", handlers.ListIncidents)
			tenants.POST("/:tenant_id/incidents/simulate", handlers.SimulateIncident)
			tenants.POST("/:tenant_id/incidents/bulk", handlers.BulkIncidents)
			tenants.PATCH("/:tenant_id/incidents/:incident_id/ack", handlers.AcknowledgeIncident)
			tenants.PATCH("/:tenant_id/incidents/:incident_id/start", handlers.StartIncident)
			tenants.PATCH("/:tenant_id/incidents/:incident_id/resolve", handlers.ResolveIncident)
			tenants.PATCH("/:tenant_id/incidents/:incident_id", handlers.UpdateIncident)

			// SLA
			tenants.POST("/:tenant_id/escalations/run", handlers.RunEscalation)
			tenants.GET("/:tenant_id/settings", handlers.GetSettings)
			tenants.PUT("/:tenant_id/settings", handlers.UpdateSettings)
		}
	}

	return r
}
