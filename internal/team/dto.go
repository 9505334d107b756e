package team

import (
	"strings"
	"time"

	"github.com/frahmantamala/org-management/internal"
)

type CreateTeamDTO struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DepartmentID int64  `json:"department_id"`
	LeaderID     *int64 `json:"leader_id,omitempty"`
}

func (dto CreateTeamDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.DepartmentID <= 0 {
		return internal.NewValidationFieldError("department_id", "department_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateTeamDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	LeaderID    *int64  `json:"leader_id,omitempty"`
	ClearLeader bool    `json:"clear_leader,omitempty"`
}

func (dto UpdateTeamDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.LeaderID != nil && dto.ClearLeader {
		return internal.NewValidationFieldError("leader_id", "leader_id and clear_leader are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type MemberDTO struct {
	UserID int64 `json:"user_id"`
}

type CreateProjectDTO struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

func (dto CreateProjectDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeValidationFailed)
	}
	if dto.Status != "" && !ValidProjectStatus(dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	if dto.StartDate != nil && dto.EndDate != nil && dto.EndDate.Before(*dto.StartDate) {
		return ErrInvalidDates
	}
	return nil
}

type UpdateProjectDTO struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

func (dto UpdateProjectDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationFieldError("name", "name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Status != nil && !ValidProjectStatus(*dto.Status) {
		return internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeInvalidStatus)
	}
	if dto.StartDate != nil && dto.EndDate != nil && dto.EndDate.Before(*dto.StartDate) {
		return ErrInvalidDates
	}
	return nil
}
