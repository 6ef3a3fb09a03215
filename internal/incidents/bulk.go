package incidents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// BulkOp names a bulk mutation.
type BulkOp string

const (
	BulkAck     BulkOp = "ack"
	BulkResolve BulkOp = "resolve"
	BulkAssign  BulkOp = "assign"
)

// bulkWorkers caps the fan-out so a large selection cannot flood the store.
const bulkWorkers = 8

// BulkResult accounts for every id in the request:
// succeeded + failed + skipped == len(unique ids).
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BulkApply runs one operation over a set of incident ids with best-effort
// semantics: every id is attempted, no failure aborts the batch. Incidents
// that reject the transition (already resolved) or no longer exist (stale
// selection after a reload) are counted as skipped; only persistence errors
// count as failed.
func (e *Engine) BulkApply(ctx context.Context, tenantID uint, ids []uint, op BulkOp, actorID uint, ownerUserID *uint, notes *string) (BulkResult, error) {
	switch op {
	case BulkAck, BulkResolve:
	case BulkAssign:
		if ownerUserID == nil && notes == nil {
			return BulkResult{}, fmt.Errorf("%w: bulk assign requires owner_user_id or notes", ErrValidation)
		}
	default:
		return BulkResult{}, fmt.Errorf("%w: unknown bulk operation %q", ErrValidation, op)
	}

	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	if len(unique) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no incident ids", ErrValidation)
	}

	var (
		mu     sync.Mutex
		result BulkResult
		wg     sync.WaitGroup
		sem    = make(chan struct{}, bulkWorkers)
	)

	for _, id := range unique {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}

			var err error
			switch op {
			case BulkAck:
				_, err = e.Acknowledge(ctx, tenantID, id, actorID)
			case BulkResolve:
				_, err = e.Resolve(ctx, tenantID, id)
			case BulkAssign:
				_, err = e.Assign(ctx, tenantID, id, ownerUserID, notes)
			}

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				result.Succeeded++
			case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
				result.Skipped++
			default:
				log.Printf("Bulk %s failed for incident %d: %v", op, id, err)
				result.Failed++
			}
		}(id)
	}

	wg.Wait()
	return result, nil
}
