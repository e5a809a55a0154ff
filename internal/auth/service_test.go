package auth

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serialist/serialist/internal/config"
	"github.com/serialist/serialist/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB, func()) {
	dbPath := "./test_auth_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	cfg := config.Auth{
		Mode:       config.AuthModeLocal,
		BcryptCost: 4, // Minimum cost keeps the tests fast
	}
	service := NewService(db, cfg)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return service, db, cleanup
}

func TestService_CreateUser(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "a-long-enough-password", user.PasswordHash)
}

func TestService_CreateUser_Validation(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"empty username", "", "a@b.co", "a-long-enough-password", ErrUsernameRequired},
		{"empty email", "ayse", "", "a-long-enough-password", ErrEmailRequired},
		{"empty password", "ayse", "a@b.co", "", ErrPasswordRequired},
		{"bad username", "a!", "a@b.co", "a-long-enough-password", ErrUsernameInvalid},
		{"bad email", "ayse", "not-an-email", "a-long-enough-password", ErrEmailInvalid},
		{"short password", "ayse", "a@b.co", "short", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateUser(tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_CreateUser_Duplicate(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)

	_, err = service.CreateUser("ayse", "other@x.com", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Authenticate(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	created, err := service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)

	user, err := service.Authenticate("ayse", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	// Email works as the login identifier too.
	user, err = service.Authenticate("ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestService_Authenticate_WrongPassword(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)

	_, err = service.Authenticate("ayse", "wrong-password-entirely")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestService_Authenticate_BannedUserRejected(t *testing.T) {
	service, db, cleanup := setupTestService(t)
	defer cleanup()

	created, err := service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)

	require.NoError(t, db.Model(&entities.User{}).Where("id = ?", created.ID).Update("is_banned", true).Error)

	_, err = service.Authenticate("ayse", "a-long-enough-password")
	assert.ErrorIs(t, err, ErrUserBanned)
}

func TestService_HasUsers(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	has, err := service.HasUsers()
	require.NoError(t, err)
	assert.False(t, has)

	_, err = service.CreateUser("ayse", "ayse@x.com", "a-long-enough-password")
	require.NoError(t, err)

	has, err = service.HasUsers()
	require.NoError(t, err)
	assert.True(t, has)
}
