package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/serialist/serialist/internal/entities"
	"github.com/serialist/serialist/internal/notifications"
)

// NotifyTask carries one domain event through the queue to the fan-out
// engine. Only the references relevant to the event type are set.
type NotifyTask struct {
	Event         entities.NotificationType `json:"event"`
	ActorID       uint                      `json:"actor_id"`
	ActorUsername string                    `json:"actor_username"`

	// TargetID is the explicit recipient for reply events.
	TargetID  uint `json:"target_id,omitempty"`
	BookID    uint `json:"book_id,omitempty"`
	ChapterID uint `json:"chapter_id,omitempty"`
	CommentID uint `json:"comment_id,omitempty"`
	PanoID    uint `json:"pano_id,omitempty"`
}

// Config returns the queue configuration for notification fan-out. One
// attempt only: delivery is at most once and a failed write is acceptable
// loss, so the queue never retries.
func (t NotifyTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "notify",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// NotifyProcessor creates a processor function for NotifyTask. Errors are
// reported to the queue for logging only; nothing downstream awaits them.
func NotifyProcessor(service *notifications.Service) backlite.QueueProcessor[NotifyTask] {
	return func(ctx context.Context, task NotifyTask) error {
		if service == nil {
			return fmt.Errorf("notification service not configured")
		}

		actor := notifications.Actor{ID: task.ActorID, Username: task.ActorUsername}

		var err error
		switch task.Event {
		case entities.NotificationTypeChapterVote:
			err = service.CreateChapterVoteNotification(actor, task.ChapterID)
		case entities.NotificationTypeComment:
			err = service.CreateCommentNotification(actor, task.CommentID)
		case entities.NotificationTypeReply:
			err = service.CreateReplyNotification(actor, task.TargetID, task.CommentID)
		case entities.NotificationTypePanoVote:
			err = service.CreatePanoVoteNotification(actor, task.PanoID)
		case entities.NotificationTypePanoComment:
			err = service.CreatePanoCommentNotification(actor, task.PanoID, task.CommentID)
		case entities.NotificationTypeNewChapter:
			err = service.CreateNewChapterNotification(actor, task.BookID, task.ChapterID)
		default:
			return fmt.Errorf("unknown notification event %q", task.Event)
		}
		if err != nil {
			return fmt.Errorf("notify %s by user %d: %w", task.Event, task.ActorID, err)
		}

		log.Printf("[TASK] Fanned out %s notification for user %d", task.Event, task.ActorID)
		return nil
	}
}

// NewNotifyQueue creates a backlite queue for notification fan-out tasks.
func NewNotifyQueue(service *notifications.Service) backlite.Queue {
	return backlite.NewQueue(NotifyProcessor(service))
}
