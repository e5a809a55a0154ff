package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serialist/serialist/internal/auth"
	"github.com/serialist/serialist/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Chapter{},
		&entities.Paragraph{},
		&entities.Comment{},
		&entities.Pano{},
		&entities.ReadingHistory{},
		&entities.Warning{},
		&entities.Notification{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
	return db
}

// identityMiddleware injects a resolved identity the way the auth
// middleware would.
func identityMiddleware(userID uint, username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set(auth.ContextKeyUserID, userID)
			c.Set(auth.ContextKeyUsername, username)
		}
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}
