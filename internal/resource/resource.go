package resource

import (
	"time"

	"github.com/frahmantamala/org-management/internal"
)

// Resource statuses. A retired resource is terminal for assignment: it can
// still be edited and deleted but never handed to a user.
const (
	StatusAvailable   = "available"
	StatusInUse       = "in_use"
	StatusMaintenance = "maintenance"
	StatusRetired     = "retired"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Resource is an assignable asset owned by a department.
type Resource struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Type           string    `json:"type" gorm:"column:resource_type"`
	Status         string    `json:"status" gorm:"column:status;default:available"`
	DepartmentID   *int64    `json:"department_id,omitempty" gorm:"column:department_id"`
	AssignedUserID *int64    `json:"assigned_user_id,omitempty" gorm:"column:assigned_user_id"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

// TableName returns the table name for GORM
func (Resource) TableName() string {
	return "resources"
}

// Facility is a bookable space or installation. Unlike resources, facilities
// are never assigned to a single user.
type Facility struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Type         string    `json:"type" gorm:"column:facility_type"`
	Capacity     int       `json:"capacity" gorm:"column:capacity"`
	Location     string    `json:"location"`
	Status       string    `json:"status" gorm:"column:status;default:available"`
	DepartmentID *int64    `json:"department_id,omitempty" gorm:"column:department_id"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

// TableName returns the table name for GORM
func (Facility) TableName() string {
	return "facilities"
}

// Domain errors
var (
	ErrResourceNotFound = internal.NewNotFoundError("resource not found", internal.ErrCodeResourceNotFound)
	ErrFacilityNotFound = internal.NewNotFoundError("facility not found", internal.ErrCodeFacilityNotFound)
	ErrResourceRetired  = internal.NewConflictError("retired resources cannot be assigned", internal.ErrCodeResourceRetired)
	ErrAlreadyAssigned  = internal.NewConflictError("resource is already assigned", internal.ErrCodeInvalidStatus)
	ErrNotAssigned      = internal.NewValidationError("resource is not assigned", internal.ErrCodeInvalidStatus)
	ErrInvalidStatus    = internal.NewValidationError("unknown resource status", internal.ErrCodeInvalidStatus)
	ErrInvalidAssignee  = internal.NewValidationError("assignee does not exist or is inactive", internal.ErrCodeInvalidReference)
	ErrInvalidOwner     = internal.NewValidationError("owning department does not exist", internal.ErrCodeInvalidReference)
)
