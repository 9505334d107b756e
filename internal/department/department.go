package department

import (
	"time"

	"github.com/frahmantamala/org-management/internal"
)

// Department is a node in the organizational unit tree. ParentID is nil for
// roots; HeadUserID points at the user heading the unit, who does not have
// to sit inside the unit itself.
type Department struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent_id,omitempty" gorm:"column:parent_id"`
	HeadUserID  *int64    `json:"head_user_id,omitempty" gorm:"column:head_user_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

// TableName returns the table name for GORM
func (Department) TableName() string {
	return "departments"
}

func (d *Department) IsRoot() bool {
	return d.ParentID == nil
}

// SubtreeView is the response shape for subtree queries: the department
// itself plus every transitive descendant.
type SubtreeView struct {
	Department  *Department   `json:"department"`
	Descendants []*Department `json:"descendants"`
}

// Domain errors
var (
	ErrDepartmentNotFound = internal.NewNotFoundError("department not found", internal.ErrCodeDepartmentNotFound)
	ErrDuplicateName      = internal.NewValidationError("department name already exists", internal.ErrCodeDuplicateName)
	ErrWouldCycle         = internal.NewCycleError("department cannot become a descendant of itself")
	ErrNotEmpty           = internal.NewValidationError("department still has child departments, users or resources", internal.ErrCodeDepartmentNotEmpty)
	ErrInvalidParent      = internal.NewValidationError("parent department does not exist", internal.ErrCodeInvalidReference)
	ErrInvalidHead        = internal.NewValidationError("head user does not exist", internal.ErrCodeInvalidReference)
)
