package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedQuestions(t *testing.T) {
	s := setupTestStore(t)

	for _, role := range CoreRoles {
		q, err := s.GetCoreQuestionByRole(role)
		require.NoError(t, err)
		require.NotNil(t, q, "seed should cover core role %s", role)
	}

	rotating, err := s.GetRotatingQuestionAtOffset(0)
	require.NoError(t, err)
	require.NotNil(t, rotating)
	require.NotNil(t, rotating.QueuePosition)
	assert.Equal(t, 0, *rotating.QueuePosition)
}

func TestRotatingOffsetWraps(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.GetRotatingQuestionAtOffset(0)
	require.NoError(t, err)

	// Seed has three rotating questions; offset 3 wraps to the first.
	wrapped, err := s.GetRotatingQuestionAtOffset(3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, wrapped.ID)

	second, err := s.GetRotatingQuestionAtOffset(4)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRotatingOffsetEmptyQueue(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.db.Where("question_type = ?", RoleRotating).Delete(&Question{}).Error)

	q, err := s.GetRotatingQuestionAtOffset(2)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestCannotVacateCoreRole(t *testing.T) {
	s := setupTestStore(t)

	rating, err := s.GetCoreQuestionByRole(RoleRating)
	require.NoError(t, err)

	err = s.ChangeQuestionType(rating.ID, RoleRotating)
	assert.ErrorIs(t, err, ErrCoreRoleEmptied)

	err = s.SetQuestionActive(rating.ID, false)
	assert.ErrorIs(t, err, ErrCoreRoleEmptied)

	// The question is untouched after the rejected changes.
	reloaded, err := s.FindQuestionByID(rating.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleRating, reloaded.QuestionType)
	assert.True(t, reloaded.IsActive)
}

func TestCannotDoubleOccupyCoreRole(t *testing.T) {
	s := setupTestStore(t)

	err := s.CreateQuestion(&Question{QuestionText: "Rate it again?", QuestionType: RoleRating, IsActive: true})
	assert.ErrorIs(t, err, ErrCoreRoleOccupied)

	rotating, err := s.GetRotatingQuestionAtOffset(0)
	require.NoError(t, err)
	err = s.ChangeQuestionType(rotating.ID, RoleRating)
	assert.ErrorIs(t, err, ErrCoreRoleOccupied)
}

func TestCoreRoleSwap(t *testing.T) {
	s := setupTestStore(t)

	// Converting rotating -> core works once the role is free: deactivate is
	// blocked, but a rotating question can take over a role vacated by a
	// type change in the other direction after a replacement exists.
	q := &Question{QuestionText: "New rating question", QuestionType: RoleRotating, IsActive: true}
	require.NoError(t, s.CreateQuestion(q))

	rating, err := s.GetCoreQuestionByRole(RoleRating)
	require.NoError(t, err)

	// Still occupied: the new question cannot take the role yet.
	assert.ErrorIs(t, s.ChangeQuestionType(q.ID, RoleRating), ErrCoreRoleOccupied)

	// But the current holder cannot leave either, so the invariant holds in
	// both directions at every intermediate state.
	assert.ErrorIs(t, s.ChangeQuestionType(rating.ID, RoleRotating), ErrCoreRoleEmptied)
}

func TestChangeTypeToRotatingJoinsQueueEnd(t *testing.T) {
	s := setupTestStore(t)

	q := &Question{QuestionText: "Extra question", QuestionType: RoleRotating, IsActive: true}
	require.NoError(t, s.CreateQuestion(q))

	reloaded, err := s.FindQuestionByID(q.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.QueuePosition)
	assert.Equal(t, 3, *reloaded.QueuePosition)
}

func TestReorderRotatingQueue(t *testing.T) {
	s := setupTestStore(t)

	queue, err := s.ListQuestions(true)
	require.NoError(t, err)
	var ids []uint
	for _, q := range queue {
		if q.QuestionType == RoleRotating {
			ids = append(ids, q.ID)
		}
	}
	require.Len(t, ids, 3)

	reversed := []uint{ids[2], ids[1], ids[0]}
	require.NoError(t, s.ReorderRotatingQueue(reversed))

	for i, id := range reversed {
		q, err := s.FindQuestionByID(id)
		require.NoError(t, err)
		require.NotNil(t, q.QueuePosition)
		assert.Equal(t, i, *q.QueuePosition)
	}

	first, err := s.GetRotatingQuestionAtOffset(0)
	require.NoError(t, err)
	assert.Equal(t, reversed[0], first.ID)
}

func TestReorderRejectsNonRotating(t *testing.T) {
	s := setupTestStore(t)

	rating, err := s.GetCoreQuestionByRole(RoleRating)
	require.NoError(t, err)
	assert.Error(t, s.ReorderRotatingQueue([]uint{rating.ID}))
}

func TestDeactivateRotatingCompactsQueue(t *testing.T) {
	s := setupTestStore(t)

	middle, err := s.GetRotatingQuestionAtOffset(1)
	require.NoError(t, err)
	require.NoError(t, s.SetQuestionActive(middle.ID, false))

	queue, err := s.ListQuestions(true)
	require.NoError(t, err)
	positions := map[int]bool{}
	for _, q := range queue {
		if q.QuestionType == RoleRotating {
			require.NotNil(t, q.QueuePosition)
			positions[*q.QueuePosition] = true
		}
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, positions)
}

func TestAdvanceRotation(t *testing.T) {
	s := setupTestStore(t)

	cfg, err := s.GetOrCreateWorkspaceConfig("default")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.QuestionIndex)
	assert.Equal(t, "thursday", cfg.CheckInDay)
	assert.Equal(t, "14:00", cfg.CheckInTime)
	assert.Equal(t, []string{"09:00", "16:00"}, []string(cfg.ReminderTimes))

	require.NoError(t, s.AdvanceRotation("default"))
	require.NoError(t, s.AdvanceRotation("default"))

	cfg, err = s.GetOrCreateWorkspaceConfig("default")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.QuestionIndex)
}
