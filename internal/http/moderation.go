package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/database/users"
	warningsdb "github.com/serialist/serialist/internal/database/warnings"
)

// ModerationController is the write surface for moderators: issuing
// warnings and flipping ban flags. Enforcement happens elsewhere (the ban
// middleware and the warning channel); these endpoints only mutate state.
// Role checks belong to the deployment's reverse proxy or admin gateway.
type ModerationController struct {
	users    *users.Repository
	warnings *warningsdb.Repository
}

func NewModerationController(users *users.Repository, warnings *warningsdb.Repository) *ModerationController {
	return &ModerationController{users: users, warnings: warnings}
}

type warningForm struct {
	Reason string `form:"reason" json:"reason" binding:"required"`
}

// IssueWarning creates a warning for a user. The insert event reaches any
// live warning channel for that user immediately.
// POST /api/moderation/users/:id/warnings
func (mc *ModerationController) IssueWarning(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := mc.users.GetUserByID(userID); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "get user")
		return
	}

	var form warningForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "reason is required")
		return
	}

	warning, err := mc.warnings.Create(userID, form.Reason)
	if err != nil {
		respondInternalError(c, err, "create warning")
		return
	}
	respondCreated(c, warning)
}

// Ban sets the ban flag on a user. The user's session ends on their next
// navigation through the ban middleware.
// POST /api/moderation/users/:id/ban
func (mc *ModerationController) Ban(c *gin.Context) {
	mc.setBan(c, true, "user banned")
}

// Unban clears the ban flag.
// DELETE /api/moderation/users/:id/ban
func (mc *ModerationController) Unban(c *gin.Context) {
	mc.setBan(c, false, "user unbanned")
}

func (mc *ModerationController) setBan(c *gin.Context, banned bool, message string) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := mc.users.SetBanned(userID, banned); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "update ban flag")
		return
	}
	respondSuccess(c, message)
}
