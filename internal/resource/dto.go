package resource

import (
	"strings"

	"github.com/frahmantamala/org-management/internal"
)

type CreateResourceDTO struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Status       string `json:"status,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

func (dto CreateResourceDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.Status != "" && !ValidStatus(dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	return nil
}

type UpdateResourceDTO struct {
	Name            *string `json:"name,omitempty"`
	Type            *string `json:"type,omitempty"`
	Status          *string `json:"status,omitempty"`
	DepartmentID    *int64  `json:"department_id,omitempty"`
	ClearDepartment bool    `json:"clear_department,omitempty"`
}

func (dto UpdateResourceDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && !ValidStatus(*dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	if dto.DepartmentID != nil && dto.ClearDepartment {
		return internal.NewValidationFieldError("department_id", "department_id and clear_department are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type AssignResourceDTO struct {
	UserID int64 `json:"user_id"`
}

type CreateFacilityDTO struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Capacity     int    `json:"capacity"`
	Location     string `json:"location"`
	Status       string `json:"status,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

func (dto CreateFacilityDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.Capacity < 0 {
		return internal.NewValidationFieldError("capacity", "capacity cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.Status != "" && !ValidStatus(dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	return nil
}

type UpdateFacilityDTO struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	Capacity     *int    `json:"capacity,omitempty"`
	Location     *string `json:"location,omitempty"`
	Status       *string `json:"status,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
}

func (dto UpdateFacilityDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Capacity != nil && *dto.Capacity < 0 {
		return internal.NewValidationFieldError("capacity", "capacity cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && !ValidStatus(*dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	return nil
}
