package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store wraps the gorm handle with the queries the check-in core and the
// admin surface need. All reads against it are treated as potentially stale
// by callers; writes are the source of truth for idempotency checks.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Connect opens the postgres database and runs migrations and seeding.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates/updates the schema and seeds the question catalog if it
// is empty.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&User{}, &Question{}, &CheckIn{}, &Response{}, &WorkspaceConfig{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return seedQuestions(gdb)
}

// seedQuestions inserts the three core questions and a starter rotating
// queue when the catalog has no rows at all. Idempotent across restarts.
func seedQuestions(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&Question{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	pos := func(i int) *int { return &i }
	seed := []Question{
		{QuestionText: "How was your week overall?", QuestionType: RoleRating, IsActive: true},
		{QuestionText: "What went well this week?", QuestionType: RoleWentWell, IsActive: true},
		{QuestionText: "What didn't go so well this week?", QuestionType: RoleDidntGoWell, IsActive: true},
		{QuestionText: "What can we do to support you better?", QuestionType: RoleRotating, IsActive: true, QueuePosition: pos(0)},
		{QuestionText: "Is there anything blocking your work right now?", QuestionType: RoleRotating, IsActive: true, QueuePosition: pos(1)},
		{QuestionText: "How connected do you feel to your team?", QuestionType: RoleRotating, IsActive: true, QueuePosition: pos(2)},
	}
	if err := gdb.Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed questions: %w", err)
	}
	return nil
}
