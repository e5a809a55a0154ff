package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/config"
	"github.com/serialist/serialist/internal/entities"
)

// Context keys for the resolved identity
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyEmail    = "auth_email"
)

// DefaultUserID is used when authentication is disabled
const DefaultUserID = uint(0)

// Middleware resolves the caller identity for every request. It is the
// identity resolver: downstream components (ban loop, warning channel,
// fan-out engine) read the session it places on the context instead of
// looking identity up themselves.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	publicPaths := map[string]bool{
		"/health":      true,
		"/ping":        true,
		"/login":       true,
		"/setup":       true,
		"/coming-soon": true,
		"/favicon.ico": true,
	}

	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return m.noAuthHandler()
	}

	return m.authHandler()
}

// noAuthHandler injects DefaultUserID for all requests when auth is disabled.
func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, DefaultUserID)
		c.Next()
	}
}

// authHandler handles authentication when auth is enabled.
func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Next()
			return
		}

		if user := m.trySessionAuth(c); user != nil {
			m.setUserContext(c, user)
			c.Next()
			return
		}

		if m.isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		// Web request - redirect to login
		c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
		c.Abort()
	}
}

// trySessionAuth attempts to authenticate using the session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}

	return user
}

// setUserContext stores the resolved identity in the Gin context.
func (m *Middleware) setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyEmail, user.Email)
}

// isPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}

	if strings.HasPrefix(path, "/static/") {
		return true
	}

	return false
}

// isAPIRequest determines if this is an API request vs web browser request.
func (m *Middleware) isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}

	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json")
}

// Helper functions to extract the resolved identity from the Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns DefaultUserID (0) if not authenticated or auth is disabled.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetSession builds the session descriptor from the context, or nil when
// the request is unauthenticated.
func GetSession(c *gin.Context) *Session {
	userID := GetUserID(c)
	if userID == 0 {
		return nil
	}

	email := ""
	if v, exists := c.Get(ContextKeyEmail); exists {
		email, _ = v.(string)
	}

	return &Session{
		UserID:   userID,
		Username: GetUsername(c),
		Email:    email,
	}
}
