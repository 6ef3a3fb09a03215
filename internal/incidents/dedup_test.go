package incidents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/types"
)

func TestReportAlertCreatesIncident(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	incident, created, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityWarning,
		Message:      "router unreachable",
		Timestamp:    now,
	})
	if err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}
	if !created {
		t.Fatal("expected a new incident to be created")
	}
	if incident.Status != types.StatusOpen {
		t.Fatalf("expected status open, got %s", incident.Status)
	}
	if !incident.FirstSeenAt.Equal(now) || !incident.LastSeenAt.Equal(now) {
		t.Fatalf("expected first/last seen %v, got %v / %v", now, incident.FirstSeenAt, incident.LastSeenAt)
	}
	if incident.Severity != types.SeverityWarning {
		t.Fatalf("expected severity warning, got %s", incident.Severity)
	}
}

func TestReportAlertDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, start)

	first, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityWarning,
		Timestamp:    start,
	})
	if err != nil {
		t.Fatalf("first ReportAlert failed: %v", err)
	}

	second, created, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityCritical,
		Timestamp:    start.Add(60 * time.Second),
	})
	if err != nil {
		t.Fatalf("second ReportAlert failed: %v", err)
	}
	if created {
		t.Fatal("expected second alert to fold into the existing incident")
	}
	if second.ID != first.ID {
		t.Fatalf("expected incident %d, got %d", first.ID, second.ID)
	}
	if !second.LastSeenAt.Equal(start.Add(60 * time.Second)) {
		t.Fatalf("expected last_seen_at to advance, got %v", second.LastSeenAt)
	}
	if second.Severity != types.SeverityCritical {
		t.Fatalf("expected severity upgrade to critical, got %s", second.Severity)
	}
	if second.Status != types.StatusOpen {
		t.Fatalf("expected status to stay open, got %s", second.Status)
	}

	if count := countIncidents(t, db, tenantID); count != 1 {
		t.Fatalf("expected exactly one incident, got %d", count)
	}
}

func TestReportAlertKeepsNewestTimestamp(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	if _, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeLatency,
		Severity:     types.SeverityInfo,
		Timestamp:    now,
	}); err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}

	// An out-of-order alert must not move last_seen_at backwards
	incident, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeLatency,
		Severity:     types.SeverityInfo,
		Timestamp:    now.Add(-10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}
	if !incident.LastSeenAt.Equal(now) {
		t.Fatalf("expected last_seen_at %v, got %v", now, incident.LastSeenAt)
	}
}

func TestReportAlertNeverDowngradesSeverity(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	if _, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeCPU,
		Severity:     types.SeverityCritical,
		Timestamp:    now,
	}); err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}

	incident, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeCPU,
		Severity:     types.SeverityWarning,
		Timestamp:    now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}
	if incident.Severity != types.SeverityCritical {
		t.Fatalf("expected severity to stay critical, got %s", incident.Severity)
	}
}

func TestReportAlertSeparatesInterfaces(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	for _, iface := range []string{"ether1", "ether2"} {
		if _, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
			RouterID:      routerID,
			InterfaceName: iface,
			IncidentType:  types.IncidentTypeInterfaceDown,
			Severity:      types.SeverityWarning,
			Timestamp:     now,
		}); err != nil {
			t.Fatalf("ReportAlert for %s failed: %v", iface, err)
		}
	}

	if count := countIncidents(t, db, tenantID); count != 2 {
		t.Fatalf("expected one incident per interface, got %d", count)
	}
}

func TestReportAlertAfterResolveCreatesNewIncident(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	first, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityWarning,
		Timestamp:    now,
	})
	if err != nil {
		t.Fatalf("ReportAlert failed: %v", err)
	}

	if _, err := engine.Resolve(context.Background(), tenantID, first.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	second, created, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
		RouterID:     routerID,
		IncidentType: types.IncidentTypeOffline,
		Severity:     types.SeverityWarning,
		Timestamp:    now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ReportAlert after resolve failed: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh incident after resolution")
	}
	if second.ID == first.ID {
		t.Fatal("expected a new incident row, got the resolved one")
	}

	if count := countIncidents(t, db, tenantID); count != 2 {
		t.Fatalf("expected two incidents (resolved + new), got %d", count)
	}
}

func TestReportAlertRecordsAlertEvents(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, db, now)

	for i := 0; i < 3; i++ {
		if _, _, err := engine.ReportAlert(context.Background(), tenantID, RawAlert{
			RouterID:     routerID,
			IncidentType: types.IncidentTypeOffline,
			Severity:     types.SeverityWarning,
			Timestamp:    now.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("ReportAlert %d failed: %v", i, err)
		}
	}

	var total, deduplicated int64
	db.Model(&models.AlertEvent{}).Where("tenant_id = ?", tenantID).Count(&total)
	db.Model(&models.AlertEvent{}).Where("tenant_id = ? AND deduplicated = ?", tenantID, true).Count(&deduplicated)

	if total != 3 {
		t.Fatalf("expected 3 alert events, got %d", total)
	}
	if deduplicated != 2 {
		t.Fatalf("expected 2 deduplicated events, got %d", deduplicated)
	}
}

func TestReportAlertValidation(t *testing.T) {
	db := setupTestDB(t)
	tenantID, routerID, _ := seedTenantRouter(t, db)

	engine := newTestEngine(t, db, time.Now())

	cases := []RawAlert{
		{RouterID: 0, IncidentType: types.IncidentTypeOffline, Severity: types.SeverityWarning},
		{RouterID: routerID, IncidentType: "meltdown", Severity: types.SeverityWarning},
		{RouterID: routerID, IncidentType: types.IncidentTypeOffline, Severity: "catastrophic"},
	}

	for i, alert := range cases {
		if _, _, err := engine.ReportAlert(context.Background(), tenantID, alert); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}
