package team

import (
	"log/slog"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
)

// Repository defines the data access methods for teams and projects.
type Repository interface {
	GetAll() ([]*Team, error)
	GetByID(id int64) (*Team, error)
	Create(t *Team) error
	Update(t *Team) error
	Delete(id int64) error

	MemberIDs(teamID int64) ([]int64, error)
	AddMember(teamID, userID int64) error
	RemoveMember(teamID, userID int64) error
	IsMember(teamID, userID int64) (bool, error)

	GetProjects(teamID int64) ([]*Project, error)
	GetProjectByID(id int64) (*Project, error)
	CreateProject(p *Project) error
	UpdateProject(p *Project) error
	DeleteProject(id int64) error

	UserActive(userID int64) (bool, error)
	DepartmentExists(id int64) (bool, error)
}

// AccessEngine is the slice of the visibility engine this service needs.
// Teams scope through their owning department.
type AccessEngine interface {
	VisibleDepartmentIDs(scope access.Scope) (access.IDSet, error)
	CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error)
}

type Service struct {
	repo   Repository
	engine AccessEngine
	logger *slog.Logger
}

func NewService(repo Repository, engine AccessEngine, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// ListTeams returns teams owned by departments the requester can see.
func (s *Service) ListTeams(scope access.Scope) ([]*Team, error) {
	visible, err := s.engine.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible departments", err)
	}

	all, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to list teams", "error", err)
		return nil, internal.NewInternalError("failed to list teams", err)
	}

	result := make([]*Team, 0, len(all))
	for _, t := range all {
		if visible.Contains(t.DepartmentID) {
			if err := s.attachMembers(t); err != nil {
				return nil, err
			}
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *Service) GetTeam(scope access.Scope, id int64) (*Team, error) {
	t, err := s.authorizedTeam(scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachMembers(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) CreateTeam(scope access.Scope, dto CreateTeamDTO) (*Team, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkDepartment(scope, dto.DepartmentID); err != nil {
		return nil, err
	}
	if dto.LeaderID != nil {
		active, err := s.repo.UserActive(*dto.LeaderID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check leader", err)
		}
		if !active {
			return nil, ErrInvalidLeader
		}
	}

	t := &Team{
		Name:         dto.Name,
		Description:  dto.Description,
		DepartmentID: dto.DepartmentID,
		LeaderID:     dto.LeaderID,
		MemberIDs:    []int64{},
	}
	if err := s.repo.Create(t); err != nil {
		s.logger.Error("failed to create team", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create team", err)
	}

	s.logger.Info("team created", "team_id", t.ID, "department_id", t.DepartmentID, "actor_id", scope.UserID)
	return t, nil
}

func (s *Service) UpdateTeam(scope access.Scope, id int64, dto UpdateTeamDTO) (*Team, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.authorizedTeam(scope, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		t.Name = *dto.Name
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	if dto.ClearLeader {
		t.LeaderID = nil
	} else if dto.LeaderID != nil {
		active, err := s.repo.UserActive(*dto.LeaderID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check leader", err)
		}
		if !active {
			return nil, ErrInvalidLeader
		}
		t.LeaderID = dto.LeaderID
	}

	if err := s.repo.Update(t); err != nil {
		s.logger.Error("failed to update team", "error", err, "team_id", id)
		return nil, internal.NewInternalError("failed to update team", err)
	}
	if err := s.attachMembers(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteTeam(scope access.Scope, id int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete team", "error", err, "team_id", id)
		return internal.NewInternalError("failed to delete team", err)
	}
	return nil
}

func (s *Service) AddMember(scope access.Scope, teamID, userID int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, teamID); err != nil {
		return err
	}

	active, err := s.repo.UserActive(userID)
	if err != nil {
		return internal.NewInternalError("failed to check member", err)
	}
	if !active {
		return ErrInvalidMember
	}

	already, err := s.repo.IsMember(teamID, userID)
	if err != nil {
		return internal.NewInternalError("failed to check membership", err)
	}
	if already {
		return ErrAlreadyMember
	}

	if err := s.repo.AddMember(teamID, userID); err != nil {
		s.logger.Error("failed to add team member", "error", err, "team_id", teamID, "user_id", userID)
		return internal.NewInternalError("failed to add team member", err)
	}
	return nil
}

func (s *Service) RemoveMember(scope access.Scope, teamID, userID int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, teamID); err != nil {
		return err
	}

	member, err := s.repo.IsMember(teamID, userID)
	if err != nil {
		return internal.NewInternalError("failed to check membership", err)
	}
	if !member {
		return ErrNotMember
	}

	if err := s.repo.RemoveMember(teamID, userID); err != nil {
		s.logger.Error("failed to remove team member", "error", err, "team_id", teamID, "user_id", userID)
		return internal.NewInternalError("failed to remove team member", err)
	}
	return nil
}

func (s *Service) ListProjects(scope access.Scope, teamID int64) ([]*Project, error) {
	if _, err := s.authorizedTeam(scope, teamID); err != nil {
		return nil, err
	}

	projects, err := s.repo.GetProjects(teamID)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err, "team_id", teamID)
		return nil, internal.NewInternalError("failed to list projects", err)
	}
	return projects, nil
}

func (s *Service) CreateProject(scope access.Scope, teamID int64, dto CreateProjectDTO) (*Project, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, teamID); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = ProjectActive
	}

	p := &Project{
		TeamID:      teamID,
		Name:        dto.Name,
		Description: dto.Description,
		Status:      status,
		StartDate:   dto.StartDate,
		EndDate:     dto.EndDate,
	}
	if err := s.repo.CreateProject(p); err != nil {
		s.logger.Error("failed to create project", "error", err, "team_id", teamID)
		return nil, internal.NewInternalError("failed to create project", err)
	}
	return p, nil
}

func (s *Service) UpdateProject(scope access.Scope, projectID int64, dto UpdateProjectDTO) (*Project, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, p.TeamID); err != nil {
		return nil, err
	}

	if dto.Name != nil {
		p.Name = *dto.Name
	}
	if dto.Description != nil {
		p.Description = *dto.Description
	}
	if dto.Status != nil {
		p.Status = *dto.Status
	}
	if dto.StartDate != nil {
		p.StartDate = dto.StartDate
	}
	if dto.EndDate != nil {
		p.EndDate = dto.EndDate
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return nil, ErrInvalidDates
	}

	if err := s.repo.UpdateProject(p); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", projectID)
		return nil, internal.NewInternalError("failed to update project", err)
	}
	return p, nil
}

func (s *Service) DeleteProject(scope access.Scope, projectID int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}

	p, err := s.repo.GetProjectByID(projectID)
	if err != nil {
		return internal.ErrAccessDenied
	}
	if _, err := s.authorizedTeam(scope, p.TeamID); err != nil {
		return err
	}

	if err := s.repo.DeleteProject(projectID); err != nil {
		s.logger.Error("failed to delete project", "error", err, "project_id", projectID)
		return internal.NewInternalError("failed to delete project", err)
	}
	return nil
}

// authorizedTeam loads the team only after the requester's visibility over
// the owning department is established; unknown ids fail uniformly.
func (s *Service) authorizedTeam(scope access.Scope, id int64) (*Team, error) {
	t, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrAccessDenied
	}
	ok, err := s.engine.CanAccessDepartment(scope, t.DepartmentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible departments", err)
	}
	if !ok {
		return nil, internal.ErrAccessDenied
	}
	return t, nil
}

func (s *Service) attachMembers(t *Team) error {
	ids, err := s.repo.MemberIDs(t.ID)
	if err != nil {
		return internal.NewInternalError("failed to load team members", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	t.MemberIDs = ids
	return nil
}

func (s *Service) checkDepartment(scope access.Scope, departmentID int64) error {
	ok, err := s.engine.CanAccessDepartment(scope, departmentID)
	if err != nil {
		return internal.NewInternalError("failed to check department access", err)
	}
	if !ok {
		return internal.ErrAccessDenied
	}
	exists, err := s.repo.DepartmentExists(departmentID)
	if err != nil {
		return internal.NewInternalError("failed to check department", err)
	}
	if !exists {
		return ErrInvalidDepartment
	}
	return nil
}
