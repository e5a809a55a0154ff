package http

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/audit"
	warningsdb "github.com/serialist/serialist/internal/database/warnings"
	"github.com/serialist/serialist/internal/realtime"
	"github.com/serialist/serialist/internal/warnings"
)

// WarningsController exposes the per-session warning channel over SSE and
// the acknowledge endpoint. The stream handler owns the channel lifecycle:
// the channel starts when the stream opens and its broker subscriptions are
// cancelled when the client disconnects.
type WarningsController struct {
	store   *warningsdb.Repository
	broker  *realtime.Broker
	hub     *warnings.Hub
	auditor *audit.Auditor
}

// NewWarningsController creates the warnings controller. auditor may be nil.
func NewWarningsController(store *warningsdb.Repository, broker *realtime.Broker, hub *warnings.Hub, auditor *audit.Auditor) *WarningsController {
	return &WarningsController{
		store:   store,
		broker:  broker,
		hub:     hub,
		auditor: auditor,
	}
}

// Stream delivers display instructions for the caller's warnings as
// server-sent events. Event "warning" carries the warning to show; event
// "clear" tells the client to drop the current one.
// GET /api/warnings/stream
func (wc *WarningsController) Stream(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	ch := warnings.NewChannel(wc.store, wc.broker, userID)
	wc.hub.Register(ch)
	defer wc.hub.Unregister(ch)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go ch.Run(ctx)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case d := <-ch.Events():
			if d.Warning != nil {
				c.SSEvent("warning", d.Warning)
			} else {
				c.SSEvent("clear", "")
			}
			return true
		}
	})
}

// Acknowledge resolves a warning for the caller. When a live channel exists
// it goes through the state machine so the display clears in place; without
// one the stored flag is flipped directly and any later stream catches up.
// POST /api/warnings/:id/ack
func (wc *WarningsController) Acknowledge(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	if ch := wc.hub.Get(userID); ch != nil {
		if err := ch.Acknowledge(id); err != nil {
			// The warning stays displayed; the client retries.
			respondInternalError(c, err, "acknowledge warning")
			return
		}
	} else {
		if _, err := wc.store.Acknowledge(id, userID); err != nil {
			respondInternalError(c, err, "acknowledge warning")
			return
		}
	}

	wc.recordAck(userID, id)
	respondSuccess(c, "warning acknowledged")
}

func (wc *WarningsController) recordAck(userID, warningID uint) {
	if wc.auditor == nil {
		return
	}
	if _, err := wc.auditor.SaveJSON(audit.Event{
		Kind:       "warning_acknowledged",
		UserID:     userID,
		Detail:     fmt.Sprintf("warning %d", warningID),
		OccurredAt: time.Now(),
	}); err != nil {
		log.Printf("Failed to write acknowledgment audit record: %v", err)
	}
}
