package http

import (
	"github.com/serialist/serialist/internal/audit"
	"github.com/serialist/serialist/internal/auth"
	"github.com/serialist/serialist/internal/config"
	"github.com/serialist/serialist/internal/database"
	"github.com/serialist/serialist/internal/database/books"
	notificationsdb "github.com/serialist/serialist/internal/database/notifications"
	"github.com/serialist/serialist/internal/database/users"
	warningsdb "github.com/serialist/serialist/internal/database/warnings"
	"github.com/serialist/serialist/internal/realtime"
	"github.com/serialist/serialist/internal/warnings"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router. This replaces a long parameter list in NewRouter.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Auditor  *audit.Auditor

	// Stores
	Users         *users.Repository
	Content       *books.Repository
	Warnings      *warningsdb.Repository
	Notifications *notificationsdb.Repository

	// Realtime delivery
	Broker *realtime.Broker
	Hub    *warnings.Hub

	// Access gateway
	Gate config.Gate

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// Task queue client (optional)
	TaskClient TaskEnqueuer

	// UI paths
	StaticPath string

	// Application info
	Version string
}
