package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/netwatch-dev/netwatch/db"
	"github.com/netwatch-dev/netwatch/internal/incidents"
	"github.com/netwatch-dev/netwatch/internal/models"
	"github.com/netwatch-dev/netwatch/internal/services"
)

const defaultSweepIntervalSeconds = 60

// Sweeper runs the auto-escalation sweep for every tenant on its own
// ticker. The escalation write itself is an idempotent compare-and-set, so
// overlapping sweeps (or a second replica running the same sweeper) are
// harmless.
type Sweeper struct {
	tenants  map[uint]*sweepJob // tenant ID -> job
	mu       sync.RWMutex
	interval time.Duration
	engine   *incidents.Engine
	ctx      context.Context
	cancel   context.CancelFunc
}

type sweepJob struct {
	tenantID uint
	ticker   *time.Ticker
	cancel   context.CancelFunc
}

// NewSweeper initializes a new Sweeper instance
func NewSweeper(engine *incidents.Engine, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		tenants:  make(map[uint]*sweepJob),
		interval: interval,
		engine:   engine,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start loads all tenants and begins sweeping
func (s *Sweeper) Start() error {
	log.Println("Starting SLA sweeper...")

	var tenantList []models.Tenant
	if err := db.DB.Find(&tenantList).Error; err != nil {
		return err
	}

	for _, tenant := range tenantList {
		s.AddTenant(tenant.ID)
	}

	log.Printf("SLA sweeper started with %d tenants", len(tenantList))
	return nil
}

// Stop gracefully shuts down all sweep jobs
func (s *Sweeper) Stop() {
	log.Println("Stopping SLA sweeper...")
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.tenants {
		job.ticker.Stop()
		job.cancel()
	}

	s.tenants = make(map[uint]*sweepJob)
	log.Println("SLA sweeper stopped")
}

// AddTenant starts sweeping for a tenant, with an immediate first pass
func (s *Sweeper) AddTenant(tenantID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingJob, exists := s.tenants[tenantID]; exists {
		existingJob.ticker.Stop()
		existingJob.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	ticker := time.NewTicker(s.interval)

	job := &sweepJob{
		tenantID: tenantID,
		ticker:   ticker,
		cancel:   jobCancel,
	}

	s.tenants[tenantID] = job

	go func() {
		s.executeSweep(tenantID)
		s.runJob(jobCtx, job)
	}()

	log.Printf("Added tenant %d to SLA sweeper", tenantID)
}

// RemoveTenant stops sweeping for a tenant
func (s *Sweeper) RemoveTenant(tenantID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.tenants[tenantID]; exists {
		job.ticker.Stop()
		job.cancel()
		delete(s.tenants, tenantID)
		log.Printf("Removed tenant %d from SLA sweeper", tenantID)
	}
}

func (s *Sweeper) runJob(ctx context.Context, job *sweepJob) {
	defer job.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-job.ticker.C:
			s.executeSweep(job.tenantID)
		}
	}
}

// executeSweep runs one escalation pass for one tenant. A failing tenant
// never affects the other tenants' jobs.
func (s *Sweeper) executeSweep(tenantID uint) {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	escalated, err := s.engine.RunAutoEscalation(ctx, tenantID)
	if err != nil {
		log.Printf("SLA sweep failed for tenant %d: %v", tenantID, err)
		return
	}

	if escalated > 0 {
		log.Printf("SLA sweep escalated %d incidents for tenant %d", escalated, tenantID)
	}
}

// GetStatus returns current sweeper status
func (s *Sweeper) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"active_tenants": len(s.tenants),
		"running":        s.ctx.Err() == nil,
	}
}

// Global sweeper instance
var globalSweeper *Sweeper

// Initialize creates and starts the global sweeper
func Initialize() error {
	interval := time.Duration(defaultSweepIntervalSeconds) * time.Second

	if raw := os.Getenv("SWEEP_INTERVAL_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			interval = time.Duration(seconds) * time.Second
		} else {
			log.Printf("Invalid SWEEP_INTERVAL_SECONDS %q, using default", raw)
		}
	}

	engine := incidents.New(db.DB, services.NewNotifier(db.DB))
	globalSweeper = NewSweeper(engine, interval)
	return globalSweeper.Start()
}

// Shutdown stops the global sweeper
func Shutdown() {
	if globalSweeper != nil {
		globalSweeper.Stop()
	}
}

// AddTenant adds a tenant to the global sweeper
func AddTenant(tenantID uint) {
	if globalSweeper != nil {
		globalSweeper.AddTenant(tenantID)
	}
}

// RemoveTenant removes a tenant from the global sweeper
func RemoveTenant(tenantID uint) {
	if globalSweeper != nil {
		globalSweeper.RemoveTenant(tenantID)
	}
}
