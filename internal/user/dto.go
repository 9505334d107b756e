package user

import (
	"strings"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
)

// CreateUserDTO is the admin-side creation shape. Self-registration lives in
// the auth module and always produces a MEMBER.
type CreateUserDTO struct {
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Password     string      `json:"password"`
	Role         access.Role `json:"role"`
	DepartmentID *int64      `json:"department_id,omitempty"`
	ManagerID    *int64      `json:"manager_id,omitempty"`
}

func (dto CreateUserDTO) Validate() error {
	if dto.Email == "" || !strings.Contains(dto.Email, "@") {
		return internal.NewValidationFieldError("email", "a valid email is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Password) < 8 {
		return internal.NewValidationFieldError("password", "password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	if !dto.Role.Valid() {
		return internal.NewValidationFieldError("role", "unknown role", internal.ErrCodeInvalidRole)
	}
	return nil
}

// UpdateUserDTO carries an allow-listed partial update. Role, department and
// active status only apply for admin callers; manager changes go through the
// dedicated manager endpoint so the cycle check always runs.
type UpdateUserDTO struct {
	Name            *string      `json:"name,omitempty"`
	Email           *string      `json:"email,omitempty"`
	Role            *access.Role `json:"role,omitempty"`
	DepartmentID    *int64       `json:"department_id,omitempty"`
	ClearDepartment bool         `json:"clear_department,omitempty"`
	IsActive        *bool        `json:"is_active,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Email != nil && !strings.Contains(*dto.Email, "@") {
		return internal.NewValidationFieldError("email", "a valid email is required", internal.ErrCodeValidationFailed)
	}
	if dto.Role != nil && !dto.Role.Valid() {
		return internal.NewValidationFieldError("role", "unknown role", internal.ErrCodeInvalidRole)
	}
	if dto.DepartmentID != nil && dto.ClearDepartment {
		return internal.NewValidationFieldError("department_id", "department_id and clear_department are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

// TouchesAdminFields reports whether the update changes anything beyond the
// caller's own profile fields.
func (dto UpdateUserDTO) TouchesAdminFields() bool {
	return dto.Role != nil || dto.DepartmentID != nil || dto.ClearDepartment || dto.IsActive != nil
}

// ChangeManagerDTO carries the new manager; a nil id detaches the user from
// the reporting forest.
type ChangeManagerDTO struct {
	ManagerID *int64 `json:"manager_id"`
}
