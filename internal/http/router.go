package http

import (
	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/auth"
	"github.com/serialist/serialist/internal/ban"
	"github.com/serialist/serialist/internal/gate"
)

// NewRouter creates and configures the HTTP router with all endpoints.
//
// Middleware order is load-bearing: the access gate runs first and must not
// touch any store; CSRF precedes the session loader so session context is
// added on top of CSRF's request replacement; the identity resolver runs
// before the ban middleware because ban enforcement needs the resolved
// session on the context.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	gateMiddleware := gate.NewMiddleware(cfg.Gate)
	router.Use(gateMiddleware.Handler())

	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Next()
		})
	}

	if cfg.SessionManager != nil {
		var recorder ban.Recorder
		if cfg.Auditor != nil {
			recorder = cfg.Auditor
		}
		banMiddleware := ban.NewMiddleware(cfg.Users, cfg.SessionManager, recorder)
		router.Use(banMiddleware.Handler())
	}

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Holding page for uncredentialed traffic during maintenance
	router.GET(gateMiddleware.HoldingPath(), gateMiddleware.HoldingPage)

	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController := auth.NewController(cfg.AuthService, cfg.SessionManager)
		authController.RegisterRoutes(router)
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	content := NewContentController(cfg.Content, cfg.TaskClient)
	notifications := NewNotificationsController(cfg.Notifications)
	warningsController := NewWarningsController(cfg.Warnings, cfg.Broker, cfg.Hub, cfg.Auditor)
	moderation := NewModerationController(cfg.Users, cfg.Warnings)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Book pages and content API
	router.GET("/books/:id", content.BookPage)
	router.POST("/api/books", content.CreateBook)
	router.POST("/api/books/:id/chapters", content.PublishChapter)
	router.POST("/api/books/:id/comments", content.CreateComment)
	router.POST("/api/chapters/:id/vote", content.VoteChapter)
	router.POST("/api/comments/:id/replies", content.CreateReply)
	router.POST("/api/panos", content.CreatePano)
	router.POST("/api/panos/:id/vote", content.VotePano)
	router.POST("/api/panos/:id/comments", content.CommentPano)

	// Notification inbox
	router.GET("/api/notifications", notifications.List)
	router.POST("/api/notifications/:id/read", notifications.MarkRead)

	// Warning delivery
	router.GET("/api/warnings/stream", warningsController.Stream)
	router.POST("/api/warnings/:id/ack", warningsController.Acknowledge)

	// Moderation surface
	router.POST("/api/moderation/users/:id/warnings", moderation.IssueWarning)
	router.POST("/api/moderation/users/:id/ban", moderation.Ban)
	router.DELETE("/api/moderation/users/:id/ban", moderation.Unban)

	return router
}
