// Package warnings provides database operations for moderation warnings.
//
// Creation publishes an insert event on the realtime broker so a live
// warning channel for the targeted user picks it up without polling.
package warnings

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/serialist/serialist/internal/entities"
	"github.com/serialist/serialist/internal/realtime"
)

// Table is the broker table name warning events are published under.
const Table = "warnings"

var ErrWarningNotFound = errors.New("warning not found")

// Repository handles warning database operations.
type Repository struct {
	db     *gorm.DB
	broker *realtime.Broker
}

// NewRepository creates a new warnings repository. The broker may be nil
// when no realtime consumers exist (CLI tools, tests).
func NewRepository(db *gorm.DB, broker *realtime.Broker) *Repository {
	return &Repository{db: db, broker: broker}
}

// Create issues a warning to a user and publishes the insert event.
func (r *Repository) Create(userID uint, reason string) (*entities.Warning, error) {
	warning := &entities.Warning{
		UserID: userID,
		Reason: reason,
	}
	if err := r.db.Create(warning).Error; err != nil {
		return nil, fmt.Errorf("failed to create warning: %w", err)
	}

	if r.broker != nil {
		r.broker.Publish(realtime.Event{
			Table:   Table,
			Type:    realtime.EventInsert,
			Fields:  map[string]uint{"user_id": warning.UserID},
			Payload: *warning,
		})
	}

	return warning, nil
}

// EarliestUnseen returns the oldest unacknowledged warning for a user, or
// ErrWarningNotFound when none exists. Ordering by (created_at, id) makes
// the pick deterministic when several unseen warnings coexist.
func (r *Repository) EarliestUnseen(userID uint) (*entities.Warning, error) {
	var warning entities.Warning
	err := r.db.
		Where("user_id = ? AND is_seen = ?", userID, false).
		Order("created_at, id").
		First(&warning).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarningNotFound
		}
		return nil, err
	}
	return &warning, nil
}

// GetByID retrieves a warning by ID.
func (r *Repository) GetByID(id uint) (*entities.Warning, error) {
	var warning entities.Warning
	err := r.db.First(&warning, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWarningNotFound
		}
		return nil, err
	}
	return &warning, nil
}

// Acknowledge marks a warning as seen. The guard on is_seen makes the
// flip effectful exactly once: a repeat acknowledgment reports false with
// no error and no row change. The userID scope stops a caller from
// acknowledging another user's warning.
func (r *Repository) Acknowledge(id, userID uint) (bool, error) {
	result := r.db.Model(&entities.Warning{}).
		Where("id = ? AND user_id = ? AND is_seen = ?", id, userID, false).
		Update("is_seen", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to acknowledge warning: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// The update event lets a live channel drop the warning when it was
	// acknowledged through another path (fallback endpoint, second device).
	if r.broker != nil {
		r.broker.Publish(realtime.Event{
			Table:   Table,
			Type:    realtime.EventUpdate,
			Fields:  map[string]uint{"user_id": userID},
			Payload: entities.Warning{ID: id, UserID: userID, IsSeen: true},
		})
	}
	return true, nil
}

// DeleteSeenBefore prunes acknowledged warnings last touched before the
// cutoff. Retention job only; unseen warnings are never deleted.
func (r *Repository) DeleteSeenBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("is_seen = ? AND updated_at < ?", true, cutoff).
		Delete(&entities.Warning{})
	return result.RowsAffected, result.Error
}
