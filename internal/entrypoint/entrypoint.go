// Package entrypoint assembles the application: configuration, database,
// realtime broker, task queue, retention scheduler, auth, and the HTTP
// router, plus graceful shutdown.
package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/audit"
	"github.com/serialist/serialist/internal/auth"
	"github.com/serialist/serialist/internal/config"
	"github.com/serialist/serialist/internal/database"
	"github.com/serialist/serialist/internal/database/books"
	notificationsdb "github.com/serialist/serialist/internal/database/notifications"
	"github.com/serialist/serialist/internal/database/users"
	warningsdb "github.com/serialist/serialist/internal/database/warnings"
	http_controllers "github.com/serialist/serialist/internal/http"
	"github.com/serialist/serialist/internal/notifications"
	"github.com/serialist/serialist/internal/realtime"
	"github.com/serialist/serialist/internal/scheduler"
	"github.com/serialist/serialist/internal/tasks"
	"github.com/serialist/serialist/internal/warnings"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background workers before the listener so in-flight fan-out
	// finishes while the database is still open.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the whole application together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Serialist v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Realtime broker: repositories publish change events, warning
	// channels subscribe per session.
	broker := realtime.NewBroker()
	hub := warnings.NewHub()

	userStore := users.NewRepository(db.DB)
	contentStore := books.NewRepository(db.DB)
	warningStore := warningsdb.NewRepository(db.DB, broker)
	notificationStore := notificationsdb.NewRepository(db.DB)

	auditor := audit.NewAuditor(cfg.Audit.Dir)
	fanout := notifications.NewService(contentStore, notificationStore)

	// Task queue for fire-and-forget work
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewNotifyQueue(fanout),
			tasks.NewRetentionQueue(notificationStore, warningStore),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Printf("Task queue disabled; notification fan-out is off")
	}

	// Retention scheduler rides on the task queue
	var retention *scheduler.RetentionScheduler
	if taskClient != nil {
		retention = scheduler.NewRetentionScheduler(taskClient, cfg.Retention)
		if err := retention.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start retention scheduler: %v", err)
		}
	}

	// Authentication
	var authService *auth.Service
	var authMiddleware *auth.Middleware
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService = auth.NewService(db.DB, cfg.Auth)

		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		authMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)

		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate CSRF secret: %v", err)
			}
			csrfSecret, _ = hex.DecodeString(secret)
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}

		hasUsers, _ := authService.HasUsers()
		if !hasUsers {
			log.Printf("No users found. Visit /setup to create the first account.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	if cfg.Gate.Maintenance {
		log.Printf("Maintenance mode enabled; uncredentialed traffic sees %s", cfg.Gate.HoldingPath)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Auditor:        auditor,
		Users:          userStore,
		Content:        contentStore,
		Warnings:       warningStore,
		Notifications:  notificationStore,
		Broker:         broker,
		Hub:            hub,
		Gate:           cfg.Gate,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if retention != nil {
			retention.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
