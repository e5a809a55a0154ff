package users

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serialist/serialist/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_users_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_CreateUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("ayse", "ayse@x.com", "hash")

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ayse", user.Username)
	assert.Equal(t, "ayse@x.com", user.Email)
	assert.False(t, user.IsBanned)
}

func TestRepository_GetUserByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetUserByID(999)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_GetUserByUsername(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.CreateUser("mehmet", "mehmet@y.com", "hash")
	require.NoError(t, err)

	user, err := repo.GetUserByUsername("mehmet")

	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestRepository_IsBanned(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("ayse", "ayse@x.com", "hash")
	require.NoError(t, err)

	banned, err := repo.IsBanned(user.ID)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, repo.SetBanned(user.ID, true))

	banned, err = repo.IsBanned(user.ID)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestRepository_IsBanned_UnknownUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.IsBanned(12345)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_SetBanned_UnknownUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SetBanned(12345, true)

	assert.ErrorIs(t, err, ErrUserNotFound)
}
