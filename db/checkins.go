package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertCheckIn creates this week's check-in row for a user, or touches the
// existing one. (user_id, week_start_date) is unique, so re-triggering the
// same week never duplicates.
func (s *Store) UpsertCheckIn(userID uint, weekStart time.Time) (*CheckIn, error) {
	checkIn := CheckIn{UserID: userID, WeekStartDate: weekStart}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": time.Now().UTC()}),
	}).Create(&checkIn).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert check-in for user %d: %w", userID, err)
	}
	return s.FindCheckIn(userID, weekStart)
}

// FindCheckIn returns nil with no error when no row exists for the week.
func (s *Store) FindCheckIn(userID uint, weekStart time.Time) (*CheckIn, error) {
	var checkIn CheckIn
	err := s.db.Where("user_id = ? AND week_start_date = ?", userID, weekStart).
		First(&checkIn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up check-in for user %d: %w", userID, err)
	}
	return &checkIn, nil
}

func (s *Store) FindCheckInByID(id uint) (*CheckIn, error) {
	var checkIn CheckIn
	if err := s.db.First(&checkIn, id).Error; err != nil {
		return nil, fmt.Errorf("failed to look up check-in %d: %w", id, err)
	}
	return &checkIn, nil
}

// CompleteCheckIn writes the three core answers plus the completion
// timestamp and, when a rotating question was asked, its Response row, in a
// single transaction. Callers never observe one without the other.
func (s *Store) CompleteCheckIn(id uint, rating int, wentWell, didntGoWell string, rotatingQuestionID *uint, rotatingAnswer string) error {
	now := time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&CheckIn{}).Where("id = ?", id).Updates(map[string]any{
			"rating":        rating,
			"went_well":     wentWell,
			"didnt_go_well": didntGoWell,
			"completed_at":  now,
			"updated_at":    now,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to complete check-in %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if rotatingQuestionID != nil {
			response := Response{
				CheckInID:    id,
				QuestionID:   *rotatingQuestionID,
				ResponseText: rotatingAnswer,
				CreatedAt:    now,
			}
			if err := tx.Create(&response).Error; err != nil {
				return fmt.Errorf("failed to save rotating response for check-in %d: %w", id, err)
			}
		}
		return nil
	})
}

// ClaimReminderSlot atomically claims reminder slot `slot` for a check-in:
// the row is updated only while incomplete and its reminded count has not
// passed the slot, and the count jumps to slot+1 so a second tick inside the
// same tolerance window loses the claim. Returns whether the claim won.
func (s *Store) ClaimReminderSlot(checkInID uint, slot int) (bool, error) {
	res := s.db.Model(&CheckIn{}).
		Where("id = ? AND reminded_count <= ? AND completed_at IS NULL", checkInID, slot).
		Updates(map[string]any{
			"reminded_count": slot + 1,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim reminder slot %d for check-in %d: %w", slot, checkInID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListResponses(checkInID uint) ([]Response, error) {
	var responses []Response
	err := s.db.Where("check_in_id = ?", checkInID).Order("id").Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for check-in %d: %w", checkInID, err)
	}
	return responses, nil
}
