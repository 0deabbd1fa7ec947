package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GetOrCreateWorkspaceConfig loads a workspace's schedule settings, creating
// the default Thursday 14:00 schedule with 09:00/16:00 reminders on first use.
func (s *Store) GetOrCreateWorkspaceConfig(workspaceID string) (*WorkspaceConfig, error) {
	var cfg WorkspaceConfig
	err := s.db.Where("workspace_id = ?", workspaceID).First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load workspace config %s: %w", workspaceID, err)
	}

	cfg = WorkspaceConfig{
		WorkspaceID:   workspaceID,
		CheckInDay:    "thursday",
		CheckInTime:   "14:00",
		ReminderTimes: datatypes.NewJSONSlice([]string{"09:00", "16:00"}),
	}
	if err := s.db.Create(&cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to create workspace config %s: %w", workspaceID, err)
	}
	return &cfg, nil
}

func (s *Store) UpdateWorkspaceConfig(workspaceID string, updates map[string]any) (*WorkspaceConfig, error) {
	updates["updated_at"] = time.Now().UTC()
	res := s.db.Model(&WorkspaceConfig{}).Where("workspace_id = ?", workspaceID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update workspace config %s: %w", workspaceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.GetOrCreateWorkspaceConfig(workspaceID)
}

// AdvanceRotation bumps the shared rotation offset by one. The offset is
// monotonic; wrapping happens modulo the queue length at lookup time.
func (s *Store) AdvanceRotation(workspaceID string) error {
	res := s.db.Model(&WorkspaceConfig{}).Where("workspace_id = ?", workspaceID).
		Updates(map[string]any{
			"question_index": gorm.Expr("question_index + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to advance rotation for workspace %s: %w", workspaceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
