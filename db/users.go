package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FindUserBySlackID returns nil with no error when the user does not exist.
func (s *Store) FindUserBySlackID(slackUserID string) (*User, error) {
	var user User
	err := s.db.Where("slack_user_id = ?", slackUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", slackUserID, err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(id uint) (*User, error) {
	var user User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Store) CreateUser(user *User) error {
	if user.Timezone == "" {
		user.Timezone = "America/New_York"
	}
	user.IsActive = true
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.SlackUserID, err)
	}
	return nil
}

func (s *Store) ListUsers(activeOnly bool) ([]User, error) {
	var users []User
	q := s.db.Order("slack_username")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *Store) ListActiveUsers() ([]User, error) {
	return s.ListUsers(true)
}

func (s *Store) UpdateUser(id uint, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := s.db.Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateUser soft-deletes: check-in history is never removed.
func (s *Store) DeactivateUser(id uint) error {
	return s.UpdateUser(id, map[string]any{"is_active": false})
}
