package incidents

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/types"
	"gorm.io/gorm"
)

// Acknowledge moves an incident to ack. Valid from open and in_progress.
// acked_at/acked_by stick from the first acknowledgement.
func (e *Engine) Acknowledge(ctx context.Context, tenantID, incidentID, actorID uint) (models.Incident, error) {
	now := e.now()

	res := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", incidentID, tenantID,
			[]string{types.StatusOpen, types.StatusInProgress}).
		Updates(map[string]interface{}{
			"status":   types.StatusAck,
			"acked_at": gorm.Expr("COALESCE(acked_at, ?)", now),
			"acked_by": gorm.Expr("COALESCE(acked_by, ?)", actorID),
		})

	return e.afterTransition(ctx, tenantID, incidentID, res)
}

// Start moves an acknowledged incident to in_progress.
func (e *Engine) Start(ctx context.Context, tenantID, incidentID uint) (models.Incident, error) {
	res := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("id = ? AND tenant_id = ? AND status = ?", incidentID, tenantID, types.StatusAck).
		Update("status", types.StatusInProgress)

	return e.afterTransition(ctx, tenantID, incidentID, res)
}

// Resolve terminates an incident from any non-resolved state. The dedup key
// is retired in the same statement so a later alert for the tuple opens a
// new incident instead of reviving this one.
func (e *Engine) Resolve(ctx context.Context, tenantID, incidentID uint) (models.Incident, error) {
	now := e.now()

	res := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", incidentID, tenantID, types.StatusResolved).
		Updates(map[string]interface{}{
			"status":      types.StatusResolved,
			"resolved_at": now,
			"dedup_key":   gorm.Expr("dedup_key || ?", fmt.Sprintf("#%d", incidentID)),
		})

	return e.afterTransition(ctx, tenantID, incidentID, res)
}

// Assign sets the owner and/or notes. Allowed in any non-terminal state and
// never touches status, severity or escalation flags.
func (e *Engine) Assign(ctx context.Context, tenantID, incidentID uint, ownerUserID *uint, notes *string) (models.Incident, error) {
	updates := make(map[string]interface{})

	if ownerUserID != nil {
		if *ownerUserID == 0 {
			updates["owner_user_id"] = nil
		} else {
			updates["owner_user_id"] = *ownerUserID
		}
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	if len(updates) == 0 {
		return models.Incident{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	res := e.db.WithContext(ctx).Model(&models.Incident{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", incidentID, tenantID, types.StatusResolved).
		Updates(updates)

	return e.afterTransition(ctx, tenantID, incidentID, res)
}

// afterTransition turns a conditional-update result into the mutated
// incident, distinguishing a missing row from a rejected transition, and
// kicks off the owner notification when the write went through.
func (e *Engine) afterTransition(ctx context.Context, tenantID, incidentID uint, res *gorm.DB) (models.Incident, error) {
	if res.Error != nil {
		return models.Incident{}, fmt.Errorf("%w: incident update: %v", ErrDependencyUnavailable, res.Error)
	}

	if res.RowsAffected == 0 {
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
		return models.Incident{}, fmt.Errorf("%w: incident %d is %s", ErrInvalidTransition, incidentID, incident.Status)
	}

	incident, err := e.Get(ctx, tenantID, incidentID)
	if err != nil {
		return models.Incident{}, err
	}

	e.notifyOwner(ctx, incident)
	return incident, nil
}

// notifyOwner dispatches the assignment notification when the tenant has
// enabled it and the incident has an owner. The dispatch is detached from
// the request: failures are logged, never returned, and the incident row is
// not held while the webhook call is in flight.
func (e *Engine) notifyOwner(ctx context.Context, incident models.Incident) {
	if e.notifier == nil || incident.OwnerUserID == nil {
		return
	}

	settings, err := e.EffectiveSettings(ctx, incident.TenantID)
	if err != nil {
		log.Printf("Failed to load settings for tenant %d: %v", incident.TenantID, err)
		return
	}
	if !settings.AssignmentEmailEnabled {
		return
	}

	var tenant models.Tenant
	if err := e.db.WithContext(ctx).First(&tenant, incident.TenantID).Error; err != nil {
		log.Printf("Failed to load tenant %d for notification: %v", incident.TenantID, err)
		return
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := e.notifier.NotifyAssignment(notifyCtx, tenant, incident); err != nil {
			log.Printf("Assignment notification for incident %d failed: %v", incident.ID, err)
		}
	}()
}
