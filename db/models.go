package db

import (
	"time"

	"gorm.io/datatypes"
)

// Question roles. The three core roles are asked every week; rotating
// questions are drawn from the admin-managed queue one per week.
const (
	RoleRating      = "rating"
	RoleWentWell    = "went_well"
	RoleDidntGoWell = "didnt_go_well"
	RoleRotating    = "rotating"
)

// CoreRoles lists the roles that must each keep exactly one active question.
var CoreRoles = []string{RoleRating, RoleWentWell, RoleDidntGoWell}

func IsCoreRole(role string) bool {
	for _, r := range CoreRoles {
		if r == role {
			return true
		}
	}
	return false
}

func IsValidRole(role string) bool {
	return role == RoleRotating || IsCoreRole(role)
}

type User struct {
	ID            uint   `gorm:"primaryKey"`
	SlackUserID   string `gorm:"uniqueIndex;not null"`
	SlackUsername string
	Email         string
	Timezone      string `gorm:"not null;default:'America/New_York'"`
	ManagerID     *uint
	Department    string
	IsActive      bool `gorm:"not null;default:true"`
	IsAdmin       bool `gorm:"not null;default:false"`
	IsManager     bool `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Question struct {
	ID           uint   `gorm:"primaryKey"`
	QuestionText string `gorm:"not null"`
	QuestionType string `gorm:"not null;index"`
	IsActive     bool   `gorm:"not null;default:true"`
	// QueuePosition is meaningful only for rotating questions: a dense,
	// zero-based ordering over the active rotating queue.
	QueuePosition *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CheckIn struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_checkin_user_week"`
	WeekStartDate time.Time `gorm:"not null;uniqueIndex:idx_checkin_user_week"`
	Rating        *int
	WentWell      string
	DidntGoWell   string
	CompletedAt   *time.Time
	RemindedCount int `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *CheckIn) Completed() bool {
	return c != nil && c.CompletedAt != nil
}

type Response struct {
	ID           uint `gorm:"primaryKey"`
	CheckInID    uint `gorm:"not null;index"`
	QuestionID   uint `gorm:"not null"`
	ResponseText string
	CreatedAt    time.Time
}

type WorkspaceConfig struct {
	ID            uint   `gorm:"primaryKey"`
	WorkspaceID   string `gorm:"uniqueIndex;not null"`
	CheckInDay    string `gorm:"not null;default:'thursday'"`
	CheckInTime   string `gorm:"not null;default:'14:00'"`
	ReminderTimes datatypes.JSONSlice[string]
	// QuestionIndex is the shared rotation offset, advanced once per
	// calendar week and reduced modulo the active rotating-queue length
	// at lookup time.
	QuestionIndex int `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
