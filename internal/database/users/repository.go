// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	banned, err := repo.IsBanned(userID)
package users

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/serialist/serialist/internal/entities"
)

var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user with a pre-hashed password.
func (r *Repository) CreateUser(username, email, passwordHash string) (*entities.User, error) {
	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IsBanned reads the ban flag for a user. The flag is written only by the
// moderation surface; everything else treats it as read-only.
func (r *Repository) IsBanned(id uint) (bool, error) {
	var user entities.User
	err := r.db.Select("id", "is_banned").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return user.IsBanned, nil
}

// SetBanned flips the ban flag. Moderation surface only.
func (r *Repository) SetBanned(id uint, banned bool) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("is_banned", banned)
	if result.Error != nil {
		return fmt.Errorf("failed to update ban flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
