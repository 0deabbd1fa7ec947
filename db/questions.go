package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Core-role invariant violations, surfaced verbatim to administrators.
var (
	ErrCoreRoleOccupied = errors.New("an active question of this type already exists")
	ErrCoreRoleEmptied  = errors.New("at least one active question of this type must exist")
)

func (s *Store) FindQuestionByID(id uint) (*Question, error) {
	var q Question
	if err := s.db.First(&q, id).Error; err != nil {
		return nil, fmt.Errorf("failed to look up question %d: %w", id, err)
	}
	return &q, nil
}

func (s *Store) ListQuestions(activeOnly bool) ([]Question, error) {
	var questions []Question
	q := s.db.Order("question_type != 'rotating' DESC, queue_position")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// GetCoreQuestionByRole returns the single active question holding a core
// role. A missing row here is a catalog misconfiguration.
func (s *Store) GetCoreQuestionByRole(role string) (*Question, error) {
	var q Question
	err := s.db.Where("question_type = ? AND is_active = ?", role, true).
		Order("id").First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s question: %w", role, err)
	}
	return &q, nil
}

// GetRotatingQuestionAtOffset resolves the rotating question for a rotation
// offset, wrapping the offset modulo the active queue length. Returns nil
// when the queue is empty.
func (s *Store) GetRotatingQuestionAtOffset(offset int) (*Question, error) {
	var count int64
	err := s.db.Model(&Question{}).
		Where("question_type = ? AND is_active = ?", RoleRotating, true).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count rotating questions: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	var q Question
	err = s.db.Where("question_type = ? AND is_active = ?", RoleRotating, true).
		Order("queue_position").Offset(offset % int(count)).First(&q).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up rotating question at offset %d: %w", offset, err)
	}
	return &q, nil
}

// CreateQuestion appends rotating questions to the end of the queue. A new
// active core-role question is rejected when the role is already held.
func (s *Store) CreateQuestion(q *Question) error {
	if !IsValidRole(q.QuestionType) {
		return fmt.Errorf("invalid question type: %q", q.QuestionType)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if q.IsActive && IsCoreRole(q.QuestionType) {
			occupied, err := roleOccupied(tx, q.QuestionType, 0)
			if err != nil {
				return err
			}
			if occupied {
				return ErrCoreRoleOccupied
			}
		}
		if q.QuestionType == RoleRotating {
			next, err := nextQueuePosition(tx)
			if err != nil {
				return err
			}
			q.QueuePosition = &next
		} else {
			q.QueuePosition = nil
		}
		if err := tx.Create(q).Error; err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateQuestionText(id uint, text string) error {
	res := s.db.Model(&Question{}).Where("id = ?", id).
		Updates(map[string]any{"question_text": text, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to update question %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ChangeQuestionType converts a question between roles, enforcing that every
// core role keeps exactly one active question. Rotating questions joining the
// queue go to the end; questions leaving it trigger a queue compaction.
func (s *Store) ChangeQuestionType(id uint, newType string) error {
	if !IsValidRole(newType) {
		return fmt.Errorf("invalid question type: %q", newType)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var q Question
		if err := tx.First(&q, id).Error; err != nil {
			return err
		}
		if q.QuestionType == newType {
			return nil
		}

		if q.IsActive && IsCoreRole(q.QuestionType) {
			occupied, err := roleOccupied(tx, q.QuestionType, q.ID)
			if err != nil {
				return err
			}
			if !occupied {
				return ErrCoreRoleEmptied
			}
		}
		if q.IsActive && IsCoreRole(newType) {
			occupied, err := roleOccupied(tx, newType, q.ID)
			if err != nil {
				return err
			}
			if occupied {
				return ErrCoreRoleOccupied
			}
		}

		updates := map[string]any{
			"question_type": newType,
			"updated_at":    time.Now().UTC(),
		}
		if newType == RoleRotating {
			next, err := nextQueuePosition(tx)
			if err != nil {
				return err
			}
			updates["queue_position"] = next
		} else {
			updates["queue_position"] = nil
		}
		if err := tx.Model(&Question{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to change question %d type: %w", id, err)
		}
		if q.QuestionType == RoleRotating {
			return compactQueue(tx)
		}
		return nil
	})
}

// SetQuestionActive toggles a question's active flag. Deactivating the sole
// active holder of a core role is rejected.
func (s *Store) SetQuestionActive(id uint, active bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var q Question
		if err := tx.First(&q, id).Error; err != nil {
			return err
		}
		if q.IsActive == active {
			return nil
		}

		if IsCoreRole(q.QuestionType) {
			occupied, err := roleOccupied(tx, q.QuestionType, q.ID)
			if err != nil {
				return err
			}
			if !active && !occupied {
				return ErrCoreRoleEmptied
			}
			if active && occupied {
				return ErrCoreRoleOccupied
			}
		}

		err := tx.Model(&Question{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("failed to set question %d active=%v: %w", id, active, err)
		}
		if q.QuestionType == RoleRotating {
			return compactQueue(tx)
		}
		return nil
	})
}

// ReorderRotatingQueue rewrites queue positions to match the given id order,
// transactionally, producing a dense zero-based ordering.
func (s *Store) ReorderRotatingQueue(ids []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			res := tx.Model(&Question{}).
				Where("id = ? AND question_type = ?", id, RoleRotating).
				Updates(map[string]any{"queue_position": i, "updated_at": time.Now().UTC()})
			if res.Error != nil {
				return fmt.Errorf("failed to reorder question %d: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("question %d is not a rotating question", id)
			}
		}
		return nil
	})
}

// roleOccupied reports whether an active question other than excludeID
// currently holds the role.
func roleOccupied(tx *gorm.DB, role string, excludeID uint) (bool, error) {
	var count int64
	err := tx.Model(&Question{}).
		Where("question_type = ? AND is_active = ? AND id <> ?", role, true, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count active %s questions: %w", role, err)
	}
	return count > 0, nil
}

func nextQueuePosition(tx *gorm.DB) (int, error) {
	var count int64
	err := tx.Model(&Question{}).
		Where("question_type = ? AND is_active = ?", RoleRotating, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rotating questions: %w", err)
	}
	return int(count), nil
}

// compactQueue renumbers active rotating questions into a gapless ordering
// after one leaves the queue.
func compactQueue(tx *gorm.DB) error {
	var queue []Question
	err := tx.Where("question_type = ? AND is_active = ?", RoleRotating, true).
		Order("queue_position").Find(&queue).Error
	if err != nil {
		return fmt.Errorf("failed to load rotating queue: %w", err)
	}
	for i := range queue {
		if queue[i].QueuePosition != nil && *queue[i].QueuePosition == i {
			continue
		}
		err = tx.Model(&Question{}).Where("id = ?", queue[i].ID).
			Update("queue_position", i).Error
		if err != nil {
			return fmt.Errorf("failed to compact rotating queue: %w", err)
		}
	}
	return nil
}
