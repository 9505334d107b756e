package user

import (
	"time"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
)

// User sits in two hierarchies at once: the department tree via DepartmentID
// and the reporting forest via ManagerID. The two are independent; a user's
// manager does not have to sit in the same department.
type User struct {
	ID           int64       `json:"id" gorm:"primaryKey"`
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	Name         string      `json:"name" gorm:"not null"`
	PasswordHash string      `json:"-" gorm:"column:password_hash"`
	Role         access.Role `json:"role" gorm:"column:role;not null"`
	DepartmentID *int64      `json:"department_id,omitempty" gorm:"column:department_id"`
	ManagerID    *int64      `json:"manager_id,omitempty" gorm:"column:manager_id"`
	IsActive     bool        `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time   `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// HierarchyView is the response shape for a user's position in the reporting
// forest: the chain up to the top, direct reports, every transitive
// subordinate, and the head of the user's department if one is set.
type HierarchyView struct {
	User           *User   `json:"user"`
	DepartmentHead *User   `json:"department_head,omitempty"`
	ReportingChain []*User `json:"reporting_chain"`
	DirectReports  []*User `json:"direct_reports"`
	Subordinates   []*User `json:"subordinates"`
}

// Domain errors
var (
	ErrUserNotFound      = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrDuplicateEmail    = internal.NewValidationError("email is already registered", internal.ErrCodeDuplicateEmail)
	ErrManagerCycle      = internal.NewCycleError("user cannot report to themselves or one of their subordinates")
	ErrInvalidManager    = internal.NewValidationError("manager does not exist or is inactive", internal.ErrCodeInvalidReference)
	ErrInvalidDepartment = internal.NewValidationError("department does not exist", internal.ErrCodeInvalidReference)
	ErrInvalidRole       = internal.NewValidationError("unknown role", internal.ErrCodeInvalidRole)
	ErrCannotDeleteSelf  = internal.NewValidationError("cannot delete your own account", internal.ErrCodeInvalidReference)
)
