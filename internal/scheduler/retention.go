// Package scheduler runs periodic maintenance. The only job today is
// retention: enqueueing a prune of resolved moderation records on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/serialist/serialist/internal/config"
	"github.com/serialist/serialist/internal/tasks"
)

// TaskEnqueuer enqueues background tasks.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// RetentionScheduler enqueues a retention task on a fixed cron schedule.
// The pruning itself runs on the task queue so a slow delete never blocks
// the scheduler goroutine.
type RetentionScheduler struct {
	queue TaskEnqueuer
	cfg   config.Retention

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewRetentionScheduler creates a new scheduler instance.
func NewRetentionScheduler(queue TaskEnqueuer, cfg config.Retention) *RetentionScheduler {
	return &RetentionScheduler{
		queue: queue,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if retention is enabled.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Retention scheduler: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.enqueuePrune()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Retention scheduler: started with schedule '%s', max age %s",
		s.cfg.Schedule, s.cfg.MaxAge)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete.
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Retention scheduler: stopped")
}

// RunNow enqueues an immediate prune.
func (s *RetentionScheduler) RunNow() {
	s.enqueuePrune()
}

// IsRunning returns whether the scheduler is active.
func (s *RetentionScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next prune will be enqueued.
func (s *RetentionScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *RetentionScheduler) enqueuePrune() {
	task := tasks.RetentionTask{MaxAgeHours: int(s.cfg.MaxAge.Hours())}
	if _, err := s.queue.Add(task).Save(); err != nil {
		log.Printf("Retention scheduler: failed to enqueue prune: %v", err)
		return
	}
	log.Printf("Retention scheduler: enqueued prune of records older than %s", s.cfg.MaxAge)
}

// ValidateCronSchedule validates a cron schedule string.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}
