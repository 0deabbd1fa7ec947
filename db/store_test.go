package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	return NewStore(gdb)
}

func createTestUser(t *testing.T, s *Store, slackID string) *User {
	user := &User{SlackUserID: slackID, SlackUsername: "tester", Timezone: "America/New_York"}
	require.NoError(t, s.CreateUser(user))
	return user
}

func TestUpsertCheckInIdempotent(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	first, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)

	second, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, s.db.Model(&CheckIn{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindCheckInMissingWeek(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")

	checkIn, err := s.FindCheckIn(user.ID, time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, checkIn)
	assert.False(t, checkIn.Completed())
}

func TestCompleteCheckInWithRotatingResponse(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	checkIn, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)

	rotating, err := s.GetRotatingQuestionAtOffset(0)
	require.NoError(t, err)
	require.NotNil(t, rotating)

	err = s.CompleteCheckIn(checkIn.ID, 4, "shipped the release", "too many meetings", &rotating.ID, "more pairing time")
	require.NoError(t, err)

	reloaded, err := s.FindCheckInByID(checkIn.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Rating)
	assert.Equal(t, 4, *reloaded.Rating)
	assert.Equal(t, "shipped the release", reloaded.WentWell)
	assert.Equal(t, "too many meetings", reloaded.DidntGoWell)
	assert.True(t, reloaded.Completed())

	responses, err := s.ListResponses(checkIn.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, rotating.ID, responses[0].QuestionID)
	assert.Equal(t, "more pairing time", responses[0].ResponseText)
}

func TestCompleteCheckInWithoutRotatingQuestion(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	checkIn, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)

	require.NoError(t, s.CompleteCheckIn(checkIn.ID, 3, "ok", "ok", nil, "ignored"))

	responses, err := s.ListResponses(checkIn.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestClaimReminderSlotOrdering(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	checkIn, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)

	// Slot 0 claims once; re-claims inside the same window lose.
	claimed, err := s.ClaimReminderSlot(checkIn.ID, 0)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimReminderSlot(checkIn.ID, 0)
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err := s.FindCheckInByID(checkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.RemindedCount)

	// Slot 1 still claimable, and only once.
	claimed, err = s.ClaimReminderSlot(checkIn.ID, 1)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimReminderSlot(checkIn.ID, 1)
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err = s.FindCheckInByID(checkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.RemindedCount)
}

func TestClaimReminderSlotSkipsMissedSlot(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	checkIn, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)

	// Slot 0 never fired; claiming slot 1 directly jumps the count past it.
	claimed, err := s.ClaimReminderSlot(checkIn.ID, 1)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimReminderSlot(checkIn.ID, 0)
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err := s.FindCheckInByID(checkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.RemindedCount)
}

func TestClaimReminderSlotCompletedCheckIn(t *testing.T) {
	s := setupTestStore(t)
	user := createTestUser(t, s, "U100")
	week := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	checkIn, err := s.UpsertCheckIn(user.ID, week)
	require.NoError(t, err)
	require.NoError(t, s.CompleteCheckIn(checkIn.ID, 5, "a", "b", nil, ""))

	claimed, err := s.ClaimReminderSlot(checkIn.ID, 0)
	require.NoError(t, err)
	assert.False(t, claimed)
}
