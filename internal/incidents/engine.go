package incidents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/types"
	"gorm.io/gorm"
)

// Notifier delivers assignment notifications to whatever channels the tenant
// has configured. Implementations must bound their own timeouts; the engine
// calls them fire-and-forget after the database write has committed.
type Notifier interface {
	NotifyAssignment(ctx context.Context, tenant models.Tenant, incident models.Incident) error
}

const notifyTimeout = 5 * time.Second

// Engine owns the incident lifecycle: deduplication of raw alerts, state
// transitions, SLA evaluation, auto-escalation and bulk mutations. All
// writes are conditional updates keyed by the incident id or the dedup
// tuple, so concurrent pollers, users and sweeps cannot lose updates.
type Engine struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

func New(db *gorm.DB, notifier Notifier) *Engine {
	return &Engine{db: db, notifier: notifier, now: time.Now}
}

// RawAlert is one event as reported by a router poller.
type RawAlert struct {
	RouterID      uint      `json:"router_id"`
	InterfaceName string    `json:"interface_name"`
	IncidentType  string    `json:"incident_type"`
	Severity      string    `json:"severity"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

func (a RawAlert) validate() error {
	if a.RouterID == 0 {
		return fmt.Errorf("%w: router_id is required", ErrValidation)
	}
	if !types.ValidIncidentType(a.IncidentType) {
		return fmt.Errorf("%w: unknown incident type %q", ErrValidation, a.IncidentType)
	}
	if !types.ValidSeverity(a.Severity) {
		return fmt.Errorf("%w: unknown severity %q", ErrValidation, a.Severity)
	}
	return nil
}

// DedupKey identifies the open-incident slot for an alert tuple. Resolved
// incidents get the key suffixed with "#<id>" so the slot frees up.
func DedupKey(tenantID, routerID uint, interfaceName, incidentType string) string {
	return fmt.Sprintf("%d/%d/%s/%s", tenantID, routerID, interfaceName, incidentType)
}

// ReportAlert folds a raw alert into the open incident for its tuple, or
// opens a new incident when none exists. The fold is a single conditional
// UPDATE (last_seen_at only moves forward, severity only upgrades) and the
// create is guarded by the unique dedup key, so two pollers reporting the
// same router concurrently always end up with exactly one open incident.
// The returned bool is true when a new incident was created.
func (e *Engine) ReportAlert(ctx context.Context, tenantID uint, alert RawAlert) (models.Incident, bool, error) {
	if err := alert.validate(); err != nil {
		return models.Incident{}, false, err
	}

	reportedAt := alert.Timestamp
	if reportedAt.IsZero() {
		reportedAt = e.now()
	}

	key := DedupKey(tenantID, alert.RouterID, alert.InterfaceName, alert.IncidentType)

	// Two passes: if the create loses a race on the dedup key, the second
	// pass folds into the incident the winner just created.
	for attempt := 0; attempt < 2; attempt++ {
		res := e.db.WithContext(ctx).Model(&models.Incident{}).
			Where("dedup_key = ? AND status <> ?", key, types.StatusResolved).
			Updates(map[string]interface{}{
				"last_seen_at": gorm.Expr("CASE WHEN last_seen_at < ? THEN ? ELSE last_seen_at END", reportedAt, reportedAt),
				"severity": gorm.Expr(
					"CASE WHEN ? > (CASE severity WHEN ? THEN 3 WHEN ? THEN 2 ELSE 1 END) THEN ? ELSE severity END",
					types.SeverityRank(alert.Severity), types.SeverityCritical, types.SeverityWarning, alert.Severity,
				),
				"message": alert.Message,
			})

		if res.Error != nil {
			return models.Incident{}, false, fmt.Errorf("%w: dedup update: %v", ErrDependencyUnavailable, res.Error)
		}

		if res.RowsAffected > 0 {
			var incident models.Incident
			if err := e.db.WithContext(ctx).
				Where("dedup_key = ? AND status <> ?", key, types.StatusResolved).
				First(&incident).Error; err != nil {
				return models.Incident{}, false, fmt.Errorf("%w: dedup reload: %v", ErrDependencyUnavailable, err)
			}
			e.recordAlertEvent(ctx, tenantID, alert, reportedAt, incident.ID, true)
			return incident, false, nil
		}

		incident := models.Incident{
			TenantID:      tenantID,
			RouterID:      alert.RouterID,
			InterfaceName: alert.InterfaceName,
			IncidentType:  alert.IncidentType,
			Severity:      alert.Severity,
			Status:        types.StatusOpen,
			Message:       alert.Message,
			DedupKey:      key,
			FirstSeenAt:   reportedAt,
			LastSeenAt:    reportedAt,
		}

		err := e.db.WithContext(ctx).Create(&incident).Error
		if err == nil {
			e.recordAlertEvent(ctx, tenantID, alert, reportedAt, incident.ID, false)
			return incident, true, nil
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Incident{}, false, fmt.Errorf("%w: create incident: %v", ErrDependencyUnavailable, err)
		}
		// Lost the create race, retry as an update.
	}

	return models.Incident{}, false, fmt.Errorf("%w: dedup retry exhausted for key %s", ErrDependencyUnavailable, key)
}

// recordAlertEvent writes the raw-alert audit row. Failures are logged, not
// returned: the audit trail must never break alert ingest.
func (e *Engine) recordAlertEvent(ctx context.Context, tenantID uint, alert RawAlert, reportedAt time.Time, incidentID uint, deduplicated bool) {
	event := models.AlertEvent{
		TenantID:      tenantID,
		RouterID:      alert.RouterID,
		InterfaceName: alert.InterfaceName,
		IncidentType:  alert.IncidentType,
		Severity:      alert.Severity,
		Message:       alert.Message,
		ReportedAt:    reportedAt,
		IncidentID:    incidentID,
		Deduplicated:  deduplicated,
	}

	if err := e.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("Failed to record alert event for incident %d: %v", incidentID, err)
	}
}

// Get loads one incident scoped to its tenant.
func (e *Engine) Get(ctx context.Context, tenantID, incidentID uint) (models.Incident, error) {
	var incident models.Incident
	err := e.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", incidentID, tenantID).
		First(&incident).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Incident{}, ErrNotFound
	}
	if err != nil {
		return models.Incident{}, fmt.Errorf("%w: load incident: %v", ErrDependencyUnavailable, err)
	}

	return incident, nil
}
