// Package notifications provides database operations for notification
// records. Rows are written by the fan-out engine and read by the
// notification listing surface; the read flag is flipped by the recipient.
package notifications

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/serialist/serialist/internal/entities"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository handles notification database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a single notification record.
func (r *Repository) Create(n *entities.Notification) error {
	if err := r.db.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// CreateBatch inserts one row per recipient in a single statement. Used by
// new-chapter fan-out; an empty batch is a no-op.
func (r *Repository) CreateBatch(batch []entities.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	if err := r.db.Create(&batch).Error; err != nil {
		return fmt.Errorf("failed to create notification batch: %w", err)
	}
	return nil
}

// ListByRecipient returns a recipient's notifications, newest first.
func (r *Repository) ListByRecipient(recipientID uint, limit, offset int) ([]entities.Notification, int64, error) {
	var total int64
	err := r.db.Model(&entities.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []entities.Notification
	err = r.db.
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UnreadCount returns the number of unread notifications for a recipient.
func (r *Repository) UnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag on one of the recipient's notifications.
func (r *Repository) MarkRead(id, recipientID uint) error {
	result := r.db.Model(&entities.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteReadBefore prunes read notifications last touched before the
// cutoff. Retention job only; unread rows are kept.
func (r *Repository) DeleteReadBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("is_read = ? AND updated_at < ?", true, cutoff).
		Delete(&entities.Notification{})
	return result.RowsAffected, result.Error
}
