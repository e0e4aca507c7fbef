package infra

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"playerbank/internal/usecase"
)

// Scheduler runs the two periodic maintenance tasks: the saver, which
// flushes every dirty cached record to storage as one batch, and the
// housekeeper, which evicts idle already-persisted records to bound memory.
type Scheduler struct {
	cron  *cron.Cron
	users *usecase.UserManager

	saveInterval        time.Duration
	housekeeperInterval time.Duration
	idleAfter           time.Duration
}

// NewScheduler creates a new Scheduler
func NewScheduler(users *usecase.UserManager, saveInterval, housekeeperInterval, idleAfter time.Duration) *Scheduler {
	return &Scheduler{
		cron:                cron.New(cron.WithSeconds()),
		users:               users,
		saveInterval:        saveInterval,
		housekeeperInterval: housekeeperInterval,
		idleAfter:           idleAfter,
	}
}

// Start registers both tasks and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.saveInterval), func() {
		s.FlushDirty(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule periodic save: %w", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.housekeeperInterval), func() {
		s.SweepIdle()
	}); err != nil {
		return fmt.Errorf("failed to schedule housekeeper: %w", err)
	}

	s.cron.Start()
	log.Printf("[OK] Scheduler started (save every %s, housekeeping every %s)", s.saveInterval, s.housekeeperInterval)
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[OK] Scheduler stopped")
}

// FlushDirty saves every dirty cached record as one batch. A batch failure
// is logged and leaves all records dirty for the next cycle.
func (s *Scheduler) FlushDirty(ctx context.Context) {
	saved, err := s.users.SaveAll(ctx)
	if err != nil {
		log.Printf("[ERROR] Periodic save failed: %v", err)
		return
	}
	if saved > 0 {
		log.Printf("Saved %d users to storage", saved)
	}
}

// SweepIdle evicts clean, disconnected records that have been idle past the
// configured threshold
func (s *Scheduler) SweepIdle() {
	if evicted := s.users.EvictIdle(s.idleAfter); evicted > 0 {
		log.Printf("Housekeeper evicted %d idle users from cache", evicted)
	}
}
