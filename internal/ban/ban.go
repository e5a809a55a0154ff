// Package ban enforces account bans on live sessions. The ban flag is
// written by moderators out of band; this middleware notices it on the
// next navigation and forcibly ends the session.
package ban

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/audit"
	"github.com/serialist/serialist/internal/auth"
)

// BanChecker reads the ban flag for an identity.
type BanChecker interface {
	IsBanned(id uint) (bool, error)
}

// SessionEnder terminates the caller's session.
type SessionEnder interface {
	DestroySession(r *http.Request) error
}

// Recorder persists an audit record. May be nil.
type Recorder interface {
	SaveJSON(data any) (string, error)
}

// Middleware runs once per navigation for the life of a session.
type Middleware struct {
	users    BanChecker
	sessions SessionEnder
	auditor  Recorder
}

// NewMiddleware creates the ban enforcement middleware. auditor may be nil.
func NewMiddleware(users BanChecker, sessions SessionEnder, auditor Recorder) *Middleware {
	return &Middleware{
		users:    users,
		sessions: sessions,
		auditor:  auditor,
	}
}

// Handler returns the Gin middleware. It must run after the identity
// resolver so the session descriptor is already on the context.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := auth.GetSession(c)
		if sess == nil {
			c.Next()
			return
		}

		banned, err := m.users.IsBanned(sess.UserID)
		if err != nil {
			// Fail open: a transient store error must not lock out
			// legitimate users. The check re-runs on the next navigation.
			log.Printf("[BAN] Ban check failed for user %d, failing open: %v", sess.UserID, err)
			c.Next()
			return
		}
		if !banned {
			c.Next()
			return
		}

		m.terminate(c, sess)
	}
}

// terminate ends the session and forces the client back to the auth entry
// point. The full-page redirect makes the browser reload all client state,
// so no authorized UI survives the ban.
func (m *Middleware) terminate(c *gin.Context, sess *auth.Session) {
	if err := m.sessions.DestroySession(c.Request); err != nil {
		// Destroy is idempotent; a failure here still ends in a redirect
		// and the next navigation repeats the whole check.
		log.Printf("[BAN] Failed to destroy session for user %d: %v", sess.UserID, err)
	}

	log.Printf("[BAN] Terminated session of banned user %d (%s)", sess.UserID, sess.Username)
	if m.auditor != nil {
		if _, err := m.auditor.SaveJSON(audit.Event{
			Kind:       "ban_enforced",
			UserID:     sess.UserID,
			OccurredAt: time.Now(),
		}); err != nil {
			log.Printf("[BAN] Failed to write audit record: %v", err)
		}
	}

	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":  "account is banned",
			"banned": true,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/login?banned=1")
	c.Abort()
}

func isAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}
