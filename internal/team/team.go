package team

import (
	"time"

	"github.com/frahmantamala/org-management/internal"
)

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on_hold"
)

func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// Team belongs to exactly one department and carries a leader plus a member
// set. Visibility follows the owning department.
type Team struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	DepartmentID int64     `json:"department_id" gorm:"column:department_id;not null"`
	LeaderID     *int64    `json:"leader_id,omitempty" gorm:"column:leader_id"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`

	MemberIDs []int64 `json:"member_ids" gorm:"-"`
}

// TableName returns the table name for GORM
func (Team) TableName() string {
	return "teams"
}

// Project hangs off one team.
type Project struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	TeamID      int64      `json:"team_id" gorm:"column:team_id;not null"`
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description"`
	Status      string     `json:"status" gorm:"column:status;default:active"`
	StartDate   *time.Time `json:"start_date,omitempty" gorm:"column:start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" gorm:"column:end_date"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

// TableName returns the table name for GORM
func (Project) TableName() string {
	return "projects"
}

// Domain errors
var (
	ErrTeamNotFound         = internal.NewNotFoundError("team not found", internal.ErrCodeTeamNotFound)
	ErrProjectNotFound      = internal.NewNotFoundError("project not found", internal.ErrCodeProjectNotFound)
	ErrInvalidDepartment    = internal.NewValidationError("department does not exist", internal.ErrCodeInvalidReference)
	ErrInvalidLeader        = internal.NewValidationError("leader does not exist or is inactive", internal.ErrCodeInvalidReference)
	ErrInvalidMember        = internal.NewValidationError("member does not exist or is inactive", internal.ErrCodeInvalidReference)
	ErrAlreadyMember        = internal.NewConflictError("user is already a team member", internal.ErrCodeInvalidReference)
	ErrNotMember            = internal.NewValidationError("user is not a team member", internal.ErrCodeInvalidReference)
	ErrInvalidProjectStatus = internal.NewValidationError("unknown project status", internal.ErrCodeInvalidStatus)
	ErrInvalidDates         = internal.NewValidationError("end date cannot precede start date", internal.ErrCodeValidationFailed)
)
