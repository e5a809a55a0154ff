package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	notificationsdb "github.com/serialist/serialist/internal/database/notifications"
)

// NotificationsController serves a recipient's own notifications.
type NotificationsController struct {
	store *notificationsdb.Repository
}

func NewNotificationsController(store *notificationsdb.Repository) *NotificationsController {
	return &NotificationsController{store: store}
}

// List returns the caller's notifications, newest first.
// GET /api/notifications
func (nc *NotificationsController) List(c *gin.Context) {
	userID := GetUserID(c)
	limit, offset := parsePagination(c)

	rows, total, err := nc.store.ListByRecipient(userID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	unread, err := nc.store.UnreadCount(userID)
	if err != nil {
		respondInternalError(c, err, "count unread notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     rows,
		"total":    total,
		"unread":   unread,
		"limit":    limit,
		"offset":   offset,
		"has_more": int64(offset+limit) < total,
	})
}

// MarkRead flips the read flag on one of the caller's notifications.
// POST /api/notifications/:id/read
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := nc.store.MarkRead(id, GetUserID(c)); err != nil {
		if errors.Is(err, notificationsdb.ErrNotificationNotFound) {
			respondNotFound(c, "notification")
			return
		}
		respondInternalError(c, err, "mark notification read")
		return
	}
	respondSuccess(c, "notification marked read")
}
