package incidents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/types"
	"gorm.io/gorm"
)

func reportOpenIncident(t *testing.T, engine *Engine, tenantID, routerID uint, at time.Time) models.Incident {
	t.Helper()

	incident, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityWarning,
		Timestamp:    at,
	})
	if err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}
	return incident
}

func TestAcknowledge(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	acked, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID)
	if err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if acked.Status != types.StatusAck {
		t.Fatalf("expected status ack, got %s", acked.Status)
	}
	if acked.AckedAt == nil || acked.AckedBy == nil || *acked.AckedBy != userID {
		t.Fatalf("expected acked_at/acked_by to be set, got %v / %v", acked.AckedAt, acked.AckedBy)
	}

	// Acknowledging an already acknowledged incident is rejected
	if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAcknowledgeUnknownIncident(t *testing.T) {
	db := setupTestDB(t)
	tenantID, _, userID := seedTenantRouter(t, db)

	engine := newTestEngine(t, db, time.Now())

	if _, err := engine.Acknowledge(context.Background(), tenantID, 9999, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcknowledgeKeepsFirstAckTimestamp(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	first, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID)
	if err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	if _, err := engine.Start(context.Background(), tenantID, incident.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Re-ack from in_progress keeps the original acked_at
	engine.now = func() time.Time { return now.Add(time.Hour) }
	second, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID)
	if err != nil {
		t.Fatalf("re-Acknowledge failed: %v", err)
	}
	if !second.AckedAt.Equal(*first.AckedAt) {
		t.Fatalf("expected acked_at to stick at %v, got %v", first.AckedAt, second.AckedAt)
	}
}

func TestStart(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	// open -> in_progress is not a valid edge
	if _, err := engine.Start(context.Background(), tenantID, incident.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from open, got %v", err)
	}

	if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	started, err := engine.Start(context.Background(), tenantID, incident.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != types.StatusInProgress {
		t.Fatalf("expected status in_progress, got %s", started.Status)
	}
}

func TestResolveFromEveryNonTerminalState(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	prepare := map[string]func(incident models.Incident){
		types.StatusOpen: func(models.Incident) {},
		types.StatusAck: func(incident models.Incident) {
			if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); err != nil {
				t.Fatalf("Acknowledge failed: %v", err)
			}
		},
		types.StatusInProgress: func(incident models.Incident) {
			if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); err != nil {
				t.Fatalf("Acknowledge failed: %v", err)
			}
			if _, err := engine.Start(context.Background(), tenantID, incident.ID); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
		},
	}

	at := now
	for state, setup := range prepare {
		incident := reportOpenIncident(t, engine, tenantID, routerID, at)
		setup(incident)

		resolved, err := engine.Resolve(context.Background(), tenantID, incident.ID)
		if err != nil {
			t.Fatalf("Resolve from %s failed: %v", state, err)
		}
		if resolved.Status != types.StatusResolved {
			t.Fatalf("expected status resolved, got %s", resolved.Status)
		}
		if resolved.ResolvedAt == nil {
			t.Fatalf("expected resolved_at to be set after resolving from %s", state)
		}

		// resolved is terminal
		if _, err := engine.Resolve(context.Background(), tenantID, incident.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition on double resolve, got %v", err)
		}
		if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition on ack after resolve, got %v", err)
		}

		at = at.Add(time.Hour)
	}
}

func TestResolvedAtOnlyWhenResolved(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	var incidentRows []models.Incident
	assertInvariant := func() {
		if err := db.Where("tenant_id = ?", tenantID).Find(&incidentRows).Error; err != nil {
			t.Fatalf("failed to load incidents: %v", err)
		}
		for _, row := range incidentRows {
			hasResolvedAt := row.ResolvedAt != nil
			isResolved := row.Status == types.StatusResolved
			if hasResolvedAt != isResolved {
				t.Fatalf("invariant broken: status=%s resolved_at=%v", row.Status, row.ResolvedAt)
			}
		}
	}

	assertInvariant()

	if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	assertInvariant()

	if _, err := engine.Resolve(context.Background(), tenantID, incident.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	assertInvariant()
}

func TestAssign(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	notes := "checking uplink"
	assigned, err := engine.Assign(context.Background(), tenantID, incident.ID, &userID, &notes)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if assigned.OwnerUserID == nil || *assigned.OwnerUserID != userID {
		t.Fatalf("expected owner %d, got %v", userID, assigned.OwnerUserID)
	}
	if assigned.Notes != notes {
		t.Fatalf("expected notes %q, got %q", notes, assigned.Notes)
	}
	if assigned.Status != types.StatusOpen {
		t.Fatalf("assignment must not change status, got %s", assigned.Status)
	}
	if assigned.IsAutoEscalated || assigned.Severity != types.SeverityWarning {
		t.Fatal("assignment must not touch severity or escalation state")
	}

	// Nothing to update
	if _, err := engine.Assign(context.Background(), tenantID, incident.ID, nil, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if _, err := engine.Resolve(context.Background(), tenantID, incident.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Terminal incidents cannot be reassigned
	if _, err := engine.Assign(context.Background(), tenantID, incident.ID, &userID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTenantScoping(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)

	otherTenant := models.Tenant{Name: "Other", Slug: "other", OwnerID: userID}
	if err := db.Create(&otherTenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	// A different tenant cannot see or mutate the incident
	if _, err := engine.Acknowledge(context.Background(), otherTenant.ID, incident.ID, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
}

type captureNotifier struct {
	calls chan models.Incident
}

func (c *captureNotifier) NotifyAssignment(_ context.Context, _ models.Tenant, incident models.Incident) error {
	c.calls <- incident
	return nil
}

func enableAssignmentNotifications(t *testing.T, db *gorm.DB, tenantID uint) {
	t.Helper()

	setting := models.TenantSetting{
		TenantID:               tenantID,
		SLAWarnMinutes:         30,
		SLABreachMinutes:       120,
		AssignmentEmailEnabled: true,
	}
	if err := db.Create(&setting).Error; err != nil {
		t.Fatalf("failed to create settings: %v", err)
	}
}

func TestAssignNotifiesOwner(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)
	enableAssignmentNotifications(t, db, tenantID)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	notifier := &captureNotifier{calls: make(chan models.Incident, 1)}
	engine := New(db, notifier)
	engine.now = func() time.Time { return now }

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	if _, err := engine.Assign(context.Background(), tenantID, incident.ID, &userID, nil); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	select {
	case notified := <-notifier.calls:
		if notified.ID != incident.ID {
			t.Fatalf("expected notification for incident %d, got %d", incident.ID, notified.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an assignment notification")
	}
}

func TestTransitionWithoutOwnerDoesNotNotify(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, userID := seedTenantRouter(t, db)
	enableAssignmentNotifications(t, db, tenantID)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	notifier := &captureNotifier{calls: make(chan models.Incident, 1)}
	engine := New(db, notifier)
	engine.now = func() time.Time { return now }

	incident := reportOpenIncident(t, engine, tenantID, routerID, now)

	if _, err := engine.Acknowledge(context.Background(), tenantID, incident.ID, userID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	select {
	case <-notifier.calls:
		t.Fatal("unexpected notification for an unassigned incident")
	case <-time.After(100 * time.Millisecond):
	}
}
