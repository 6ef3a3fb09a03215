package incidents

import (
	"testing"
	"time"

	gsqlite "github.com/glebarez/sqlite"
	"github.com/netwatch-dev/netwatch/internal/models"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory sqlite DB and auto-migrates all models
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gsqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite memory DB: %v", err)
	}

	// A private :memory: database exists per connection, so pin the pool
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Tenant{},
		&models.TenantMembership{},
		&models.TenantSetting{},
		&models.Router{},
		&models.Incident{},
		&models.AlertEvent{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("automigrate failed: %v", err)
	}

	return db
}

// newTestEngine builds an engine with a pinned clock
func newTestEngine(t *testing.T, db *gorm.DB, at time.Time) *Engine {
	t.Helper()

	engine := New(db, nil)
	engine.now = func() time.Time { return at }
	return engine
}

// seedTenantRouter creates the minimal tenant/user/router fixtures and
// returns (tenantID, routerID, userID)
func seedTenantRouter(t *testing.T, db *gorm.DB) (uint, uint, uint) {
	t.Helper()

	user := models.User{Name: "Ops", Email: "ops@example.com", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	tenant := models.Tenant{Name: "Acme", Slug: "acme", OwnerID: user.ID}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	router := models.Router{TenantID: tenant.ID, Name: "edge-1", Host: "10.0.0.1", Port: 8728, Online: true}
	if err := db.Create(&router).Error; err != nil {
		t.Fatalf("failed to create router: %v", err)
	}

	return tenant.ID, router.ID, user.ID
}

func countIncidents(t *testing.T, db *gorm.DB, tenantID uint) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.Incident{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count incidents: %v", err)
	}
	return count
}
