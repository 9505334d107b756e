package department

import (
	"strings"

	"github.com/frahmantamala/org-management/internal"
)

// CreateDepartmentDTO is the request payload for creating a department.
type CreateDepartmentDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	HeadUserID  *int64 `json:"head_user_id,omitempty"`
}

func (dto CreateDepartmentDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Name) > 100 {
		return internal.NewValidationFieldError("name", "name must not exceed 100 characters", internal.ErrCodeValidationFailed)
	}
	if len(dto.Description) > 500 {
		return internal.NewValidationFieldError("description", "description must not exceed 500 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateDepartmentDTO carries an allow-listed partial update. Nil pointers
// leave the field untouched; the explicit Clear/Move flags distinguish
// "unset the reference" from "keep it".
type UpdateDepartmentDTO struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	HeadUserID    *int64  `json:"head_user_id,omitempty"`
	ClearHeadUser bool    `json:"clear_head_user,omitempty"`
	ParentID      *int64  `json:"parent_id,omitempty"`
	MoveToRoot    bool    `json:"move_to_root,omitempty"`
}

func (dto UpdateDepartmentDTO) Validate() error {
	if dto.Name != nil {
		if strings.TrimSpace(*dto.Name) == "" {
			return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
		}
		if len(*dto.Name) > 100 {
			return internal.NewValidationFieldError("name", "name must not exceed 100 characters", internal.ErrCodeValidationFailed)
		}
	}
	if dto.Description != nil && len(*dto.Description) > 500 {
		return internal.NewValidationFieldError("description", "description must not exceed 500 characters", internal.ErrCodeValidationFailed)
	}
	if dto.HeadUserID != nil && dto.ClearHeadUser {
		return internal.NewValidationFieldError("head_user_id", "head_user_id and clear_head_user are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	if dto.ParentID != nil && dto.MoveToRoot {
		return internal.NewValidationFieldError("parent_id", "parent_id and move_to_root are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ChangesParent reports whether the update touches the tree position.
func (dto UpdateDepartmentDTO) ChangesParent() bool {
	return dto.ParentID != nil || dto.MoveToRoot
}
