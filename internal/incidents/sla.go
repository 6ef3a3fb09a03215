package incidents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/types"
	"gorm.io/gorm"
)

const (
	DefaultWarnMinutes   = 30
	DefaultBreachMinutes = 120
)

// Settings is the effective per-tenant SLA policy.
type Settings struct {
	WarnMinutes            int  `json:"sla_warn_minutes"`
	BreachMinutes          int  `json:"sla_breach_minutes"`
	AssignmentEmailEnabled bool `json:"assignment_email_enabled"`
}

// EffectiveSettings loads the tenant's SLA policy, applying defaults when no
// row exists and clamping a breach threshold that was configured below the
// warn threshold up to twice the warn threshold.
func (e *Engine) EffectiveSettings(ctx context.Context, tenantID uint) (Settings, error) {
	settings := Settings{
		WarnMinutes:   DefaultWarnMinutes,
		BreachMinutes: DefaultBreachMinutes,
	}

	var row models.TenantSetting
	err := e.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("%w: load settings: %v", ErrDependencyUnavailable, err)
	}

	if row.SLAWarnMinutes > 0 {
		settings.WarnMinutes = row.SLAWarnMinutes
	}
	if row.SLABreachMinutes > 0 {
		settings.BreachMinutes = row.SLABreachMinutes
	}
	settings.AssignmentEmailEnabled = row.AssignmentEmailEnabled

	if settings.BreachMinutes < settings.WarnMinutes {
		settings.BreachMinutes = 2 * settings.WarnMinutes
	}

	return settings, nil
}

// Level computes the SLA state of an incident at a point in time. Resolved
// incidents are always ok regardless of how long they were open.
func Level(incident models.Incident, settings Settings, now time.Time) string {
	if incident.Status == types.StatusResolved {
		return types.SLAOk
	}

	openFor := now.Sub(incident.FirstSeenAt)

	if openFor >= time.Duration(settings.BreachMinutes)*time.Minute {
		return types.SLABreach
	}
	if openFor >= time.Duration(settings.WarnMinutes)*time.Minute {
		return types.SLAWarn
	}
	return types.SLAOk
}

// RunAutoEscalation upgrades every breaching, not-yet-critical, not-yet-
// escalated incident of the tenant to critical in one conditional UPDATE and
// returns how many rows it touched. The guard columns make it idempotent:
// a second run, or a concurrent sweep, escalates nothing extra.
func (e *Engine) RunAutoEscalation(ctx context.Context, tenantID uint) (int, error) {
	settings, err := e.EffectiveSettings(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	cutoff := now.Add(-time.Duration(settings.BreachMinutes) * time.Minute)

	res := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("tenant_id = ? AND status <> ? AND is_auto_escalated = ? AND severity <> ? AND first_seen_at <= ?",
			tenantID, types.StatusResolved, false, types.SeverityCritical, cutoff).
		Updates(map[string]interface{}{
			"severity":          types.SeverityCritical,
			"is_auto_escalated": true,
			"escalated_at":      now,
		})

	if res.Error != nil {
		return 0, fmt.Errorf("%w: escalation sweep: %v", ErrDependencyUnavailable, res.Error)
	}

	return int(res.RowsAffected), nil
}

// Metrics are the tenant's incident KPIs. The means are nil, not zero, when
// no incident has the required timestamps yet.
type Metrics struct {
	MTTAMillis *int64 `json:"mtta_ms"`
	MTTRMillis *int64 `json:"mttr_ms"`
	Open       int64  `json:"open"`
	Acked      int64  `json:"acked"`
	InProgress int64  `json:"in_progress"`
	Resolved   int64  `json:"resolved"`
	Breached   int64  `json:"breached"`
}

// ComputeMetrics derives MTTA/MTTR and status counts for a tenant. The time
// math happens in Go so the query stays portable across Postgres and the
// sqlite test databases.
func (e *Engine) ComputeMetrics(ctx context.Context, tenantID uint) (Metrics, error) {
	var metrics Metrics

	type pair struct {
		FirstSeenAt time.Time
		AckedAt     *time.Time
		ResolvedAt  *time.Time
		Status      string
	}

	var rows []pair
	if err := e.db.WithContext(ctx).Model(&models.Incident{}).
		Select("first_seen_at", "acked_at", "resolved_at", "status").
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error; err != nil {
		return Metrics{}, fmt.Errorf("%w: load metrics: %v", ErrDependencyUnavailable, err)
	}

	var ackTotal, resolveTotal time.Duration
	var ackSamples, resolveSamples int64

	for _, row := range rows {
		switch row.Status {
		case types.StatusOpen:
			metrics.Open++
		case types.StatusAck:
			metrics.Acked++
		case types.StatusInProgress:
			metrics.InProgress++
		case types.StatusResolved:
			metrics.Resolved++
		}

		if row.AckedAt != nil {
			ackTotal += row.AckedAt.Sub(row.FirstSeenAt)
			ackSamples++
		}
		if row.ResolvedAt != nil {
			resolveTotal += row.ResolvedAt.Sub(row.FirstSeenAt)
			resolveSamples++
		}
	}

	if ackSamples > 0 {
		mtta := (ackTotal / time.Duration(ackSamples)).Milliseconds()
		metrics.MTTAMillis = &mtta
	}
	if resolveSamples > 0 {
		mttr := (resolveTotal / time.Duration(resolveSamples)).Milliseconds()
		metrics.MTTRMillis = &mttr
	}

	settings, err := e.EffectiveSettings(ctx, tenantID)
	if err != nil {
		return Metrics{}, err
	}

	cutoff := e.now().Add(-time.Duration(settings.BreachMinutes) * time.Minute)
	if err := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("tenant_id = ? AND status <> ? AND first_seen_at <= ?", tenantID, types.StatusResolved, cutoff).
		Count(&metrics.Breached).Error; err != nil {
		return Metrics{}, fmt.Errorf("%w: count breached: %v", ErrDependencyUnavailable, err)
	}

	return metrics, nil
}
