package user

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/events"
	"github.com/frahmantamala/org-management/internal/core/hierarchy"
)

// Repository defines the data access methods for users.
type Repository interface {
	GetAll() ([]*User, error)
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	Create(u *User) error
	Update(u *User) error
	// SetManager re-checks the reporting cycle invariant and writes the new
	// manager in a single transaction; see the postgres implementation.
	SetManager(id int64, managerID *int64) error
	// Delete removes the user, reattaches their reports to the deleted
	// user's own manager and releases their assigned resources.
	Delete(id int64) error
	ManagerMap() (map[int64]*int64, error)
	DepartmentExists(id int64) (bool, error)
	DepartmentHead(departmentID int64) (*User, error)
}

// AccessEngine is the slice of the visibility engine this service needs.
type AccessEngine interface {
	VisibleUserIDs(scope access.Scope) (access.IDSet, error)
	CanAccessUser(scope access.Scope, userID int64) (bool, error)
	CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error)
}

type Service struct {
	repo       Repository
	engine     AccessEngine
	bus        *events.EventBus
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, engine AccessEngine, bus *events.EventBus, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		engine:     engine,
		bus:        bus,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, actorID int64, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewAuditEvent(eventType, actorID, data)); err != nil {
		s.logger.Warn("failed to publish audit event", "event_type", eventType, "error", err)
	}
}

// ListUsers returns every user inside the requester's visible set. A MEMBER
// sees only themselves.
func (s *Service) ListUsers(scope access.Scope) ([]*User, error) {
	visible, err := s.engine.VisibleUserIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible users", err)
	}

	all, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}

	result := make([]*User, 0, len(all))
	for _, u := range all {
		if visible.Contains(u.ID) {
			result = append(result, u)
		}
	}
	return result, nil
}

// GetUser returns one user. Ids outside the visible set fail with the
// uniform access-denied error, existent or not.
func (s *Service) GetUser(scope access.Scope, id int64) (*User, error) {
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	return s.getExisting(id)
}

// GetProfile returns the requester's own record.
func (s *Service) GetProfile(scope access.Scope) (*User, error) {
	return s.getExisting(scope.UserID)
}

// CreateUser creates an account on behalf of an admin. The granted role can
// never outrank the caller's own, and the target department must sit inside
// the caller's visible set.
func (s *Service) CreateUser(scope access.Scope, dto CreateUserDTO) (*User, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !scope.Role.AtLeast(dto.Role) {
		return nil, internal.ErrAccessDenied
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, ErrDuplicateEmail
	}

	if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
	}
	if dto.ManagerID != nil {
		if err := s.checkManager(*dto.ManagerID); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		Role:         dto.Role,
		DepartmentID: dto.DepartmentID,
		ManagerID:    dto.ManagerID,
		IsActive:     true,
	}
	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "actor_id", scope.UserID)
	s.publish(context.Background(), events.EventUserCreated, scope.UserID, map[string]interface{}{
		"user_id": u.ID,
		"role":    string(u.Role),
	})
	return u, nil
}

// UpdateUser applies an allow-listed partial update. Non-admins may only
// touch their own name and email; role, department and active status need
// UNIT_ADMIN or better, and a granted role can never outrank the caller's.
func (s *Service) UpdateUser(scope access.Scope, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	isAdmin := scope.Role.AtLeast(access.RoleUnitAdmin)
	if !isAdmin && id != scope.UserID {
		return nil, internal.ErrAccessDenied
	}
	if isAdmin {
		if err := s.authorize(scope, id); err != nil {
			return nil, err
		}
	}
	if dto.TouchesAdminFields() && !isAdmin {
		return nil, internal.ErrAccessDenied
	}

	u, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	if dto.Email != nil && *dto.Email != u.Email {
		if existing, err := s.repo.GetByEmail(*dto.Email); err == nil && existing != nil && existing.ID != id {
			return nil, ErrDuplicateEmail
		}
		u.Email = *dto.Email
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Role != nil {
		if !scope.Role.AtLeast(*dto.Role) {
			return nil, internal.ErrAccessDenied
		}
		u.Role = *dto.Role
	}
	if dto.ClearDepartment {
		u.DepartmentID = nil
	} else if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
		u.DepartmentID = dto.DepartmentID
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.publish(context.Background(), events.EventUserUpdated, scope.UserID, map[string]interface{}{
		"user_id": u.ID,
	})
	return u, nil
}

// ChangeManager moves a user inside the reporting forest. The new manager
// must not be the user themselves or any transitive subordinate.
func (s *Service) ChangeManager(scope access.Scope, id int64, managerID *int64) (*User, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}

	u, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	if managerID != nil {
		if *managerID == id {
			return nil, ErrManagerCycle
		}
		if err := s.checkManager(*managerID); err != nil {
			return nil, err
		}

		managers, err := s.repo.ManagerMap()
		if err != nil {
			return nil, internal.NewInternalError("failed to load reporting forest", err)
		}
		if hierarchy.NewForest(managers).WouldCycle(id, managerID) {
			s.logger.Warn("manager change rejected: would create reporting cycle",
				"user_id", id,
				"new_manager_id", *managerID)
			return nil, ErrManagerCycle
		}
	}

	// the repository repeats this check inside the write transaction so two
	// concurrent manager changes cannot jointly form a cycle
	if err := s.repo.SetManager(id, managerID); err != nil {
		if err == hierarchy.ErrCycleDetected {
			return nil, ErrManagerCycle
		}
		s.logger.Error("failed to change manager", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to change manager", err)
	}
	u.ManagerID = managerID

	s.publish(context.Background(), events.EventUserManagerChanged, scope.UserID, map[string]interface{}{
		"user_id":        id,
		"new_manager_id": managerID,
	})
	return u, nil
}

// DeleteUser removes an account. Direct reports are reattached to the
// deleted user's own manager so the forest never orphans silently.
func (s *Service) DeleteUser(scope access.Scope, id int64) error {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return internal.ErrAccessDenied
	}
	if id == scope.UserID {
		return ErrCannotDeleteSelf
	}
	if err := s.authorize(scope, id); err != nil {
		return err
	}
	if _, err := s.getExisting(id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "actor_id", scope.UserID)
	s.publish(context.Background(), events.EventUserDeleted, scope.UserID, map[string]interface{}{
		"user_id": id,
	})
	return nil
}

// GetHierarchy returns the user's position in the reporting forest plus the
// head of their department, if any.
func (s *Service) GetHierarchy(scope access.Scope, id int64) (*HierarchyView, error) {
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	u, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	managers, err := s.repo.ManagerMap()
	if err != nil {
		return nil, internal.NewInternalError("failed to load reporting forest", err)
	}
	forest := hierarchy.NewForest(managers)

	chainIDs, err := forest.AncestorChainOf(id)
	if err != nil {
		s.logger.Error("persisted reporting cycle detected", "user_id", id)
		return nil, internal.NewInternalError("reporting forest is corrupt", err)
	}

	view := &HierarchyView{
		User:           u,
		ReportingChain: make([]*User, 0, len(chainIDs)),
		DirectReports:  []*User{},
		Subordinates:   []*User{},
	}

	for _, managerID := range chainIDs {
		m, err := s.repo.GetByID(managerID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load manager", err)
		}
		view.ReportingChain = append(view.ReportingChain, m)
	}

	directIDs := forest.ChildrenOf(id)
	subordinateIDs := forest.DescendantsOf(id)
	for _, reportID := range directIDs {
		r, err := s.repo.GetByID(reportID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load direct report", err)
		}
		view.DirectReports = append(view.DirectReports, r)
	}
	for subordinateID := range subordinateIDs {
		r, err := s.repo.GetByID(subordinateID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load subordinate", err)
		}
		view.Subordinates = append(view.Subordinates, r)
	}

	if u.DepartmentID != nil {
		head, err := s.repo.DepartmentHead(*u.DepartmentID)
		if err == nil && head != nil {
			view.DepartmentHead = head
		}
	}
	return view, nil
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

func (s *Service) checkManager(managerID int64) error {
	m, err := s.repo.GetByID(managerID)
	if err != nil || m == nil || !m.IsActive {
		return ErrInvalidManager
	}
	return nil
}

func (s *Service) authorize(scope access.Scope, id int64) error {
	ok, err := s.engine.CanAccessUser(scope, id)
	if err != nil {
		return internal.NewInternalError("failed to compute visible users", err)
	}
	if !ok {
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) getExisting(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
