package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ReadNotificationsCleaner deletes read notifications older than a cutoff.
type ReadNotificationsCleaner interface {
	DeleteReadBefore(cutoff time.Time) (int64, error)
}

// SeenWarningsCleaner deletes acknowledged warnings older than a cutoff.
type SeenWarningsCleaner interface {
	DeleteSeenBefore(cutoff time.Time) (int64, error)
}

// RetentionTask prunes resolved moderation records. Unread notifications
// and unseen warnings are never touched regardless of age.
type RetentionTask struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// Config returns the queue configuration for retention tasks.
func (t RetentionTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "retention",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RetentionProcessor creates a processor function for RetentionTask.
func RetentionProcessor(notifications ReadNotificationsCleaner, warnings SeenWarningsCleaner) backlite.QueueProcessor[RetentionTask] {
	return func(ctx context.Context, task RetentionTask) error {
		maxAge := time.Duration(task.MaxAgeHours) * time.Hour
		if maxAge <= 0 {
			maxAge = 90 * 24 * time.Hour
		}
		cutoff := time.Now().Add(-maxAge)

		prunedNotifications, err := notifications.DeleteReadBefore(cutoff)
		if err != nil {
			return fmt.Errorf("prune read notifications: %w", err)
		}
		prunedWarnings, err := warnings.DeleteSeenBefore(cutoff)
		if err != nil {
			return fmt.Errorf("prune seen warnings: %w", err)
		}

		log.Printf("[TASK] Retention pruned %d notifications and %d warnings older than %s",
			prunedNotifications, prunedWarnings, maxAge)
		return nil
	}
}

// NewRetentionQueue creates a backlite queue for retention tasks.
func NewRetentionQueue(notifications ReadNotificationsCleaner, warnings SeenWarningsCleaner) backlite.Queue {
	return backlite.NewQueue(RetentionProcessor(notifications, warnings))
}
