package department

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/events"
	"github.com/frahmantamala/org-management/internal/core/hierarchy"
)

// Repository defines the data access methods for departments.
type Repository interface {
	GetAll() ([]*Department, error)
	GetByID(id int64) (*Department, error)
	GetByName(name string) (*Department, error)
	Create(d *Department) error
	Update(d *Department) error
	// UpdateAndReparent re-checks the cycle invariant and writes the new
	// parent together with the rest of the update in a single transaction;
	// see the postgres implementation.
	UpdateAndReparent(d *Department, newParentID *int64) error
	Delete(id int64) error
	DeleteAndReparent(id int64, newParentID *int64) error
	ParentMap() (map[int64]*int64, error)
	CountUsers(departmentID int64) (int64, error)
	CountResources(departmentID int64) (int64, error)
	UserExists(userID int64) (bool, error)
}

// AccessEngine is the slice of the visibility engine this service needs.
type AccessEngine interface {
	VisibleDepartmentIDs(scope access.Scope) (access.IDSet, error)
	CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error)
}

// Service handles department business logic.
type Service struct {
	repo         Repository
	engine       AccessEngine
	bus          *events.EventBus
	deletePolicy string
	logger       *slog.Logger
}

func NewService(repo Repository, engine AccessEngine, bus *events.EventBus, deletePolicy string, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		engine:       engine,
		bus:          bus,
		deletePolicy: deletePolicy,
		logger:       logger,
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

// ListDepartments returns every department inside the requester's visible set.
func (s *Service) ListDepartments(scope access.Scope) ([]*Department, error) {
	visible, err := s.engine.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible departments", err)
	}

	all, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return nil, internal.NewInternalError("failed to list departments", err)
	}

	result := make([]*Department, 0, len(all))
	for _, d := range all {
		if visible.Contains(d.ID) {
			result = append(result, d)
		}
	}
	return result, nil
}

// GetDepartment returns one department. Ids outside the visible set fail
// with the uniform access-denied error, existent or not.
func (s *Service) GetDepartment(scope access.Scope, id int64) (*Department, error) {
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	return s.getExisting(id)
}

// GetSubtree returns a department plus all transitive descendants the
// requester can see.
func (s *Service) GetSubtree(scope access.Scope, id int64) (*SubtreeView, error) {
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	root, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	parents, err := s.repo.ParentMap()
	if err != nil {
		return nil, internal.NewInternalError("failed to load department tree", err)
	}
	descendantIDs := hierarchy.NewForest(parents).DescendantsOf(id)

	visible, err := s.engine.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible departments", err)
	}

	all, err := s.repo.GetAll()
	if err != nil {
		return nil, internal.NewInternalError("failed to list departments", err)
	}

	view := &SubtreeView{Department: root, Descendants: make([]*Department, 0, len(descendantIDs))}
	for _, d := range all {
		if _, ok := descendantIDs[d.ID]; ok && visible.Contains(d.ID) {
			view.Descendants = append(view.Descendants, d)
		}
	}
	return view, nil
}

// GetAncestors returns the chain from immediate parent up to the root. A
// root department yields an empty chain.
func (s *Service) GetAncestors(scope access.Scope, id int64) ([]*Department, error) {
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	if _, err := s.getExisting(id); err != nil {
		return nil, err
	}

	parents, err := s.repo.ParentMap()
	if err != nil {
		return nil, internal.NewInternalError("failed to load department tree", err)
	}

	chain, err := hierarchy.NewForest(parents).AncestorChainOf(id)
	if err != nil {
		// persisted cycle: the write path failed somewhere, surface loudly
		s.logger.Error("persisted department cycle detected", "department_id", id)
		return nil, internal.NewInternalError("department tree is corrupt", err)
	}

	ancestors := make([]*Department, 0, len(chain))
	for _, ancestorID := range chain {
		d, err := s.repo.GetByID(ancestorID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load ancestor department", err)
		}
		ancestors = append(ancestors, d)
	}
	return ancestors, nil
}

// CreateDepartment creates a unit at any tree position the requester can
// see. Creating root departments requires an org-wide scope.
func (s *Service) CreateDepartment(scope access.Scope, dto CreateDepartmentDTO) (*Department, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByName(dto.Name); err == nil && existing != nil {
		return nil, ErrDuplicateName
	}

	if dto.ParentID != nil {
		ok, err := s.engine.CanAccessDepartment(scope, *dto.ParentID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check parent access", err)
		}
		if !ok {
			return nil, internal.ErrAccessDenied
		}
		if _, err := s.repo.GetByID(*dto.ParentID); err != nil {
			return nil, ErrInvalidParent
		}
	}

	if dto.HeadUserID != nil {
		exists, err := s.repo.UserExists(*dto.HeadUserID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check head user", err)
		}
		if !exists {
			return nil, ErrInvalidHead
		}
	}

	d := &Department{
		Name:        dto.Name,
		Description: dto.Description,
		ParentID:    dto.ParentID,
		HeadUserID:  dto.HeadUserID,
	}
	if err := s.repo.Create(d); err != nil {
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create department", err)
	}

	s.logger.Info("department created", "department_id", d.ID, "name", d.Name, "actor_id", scope.UserID)
	s.publish(context.Background(), events.EventDepartmentCreated, scope.UserID, map[string]interface{}{
		"department_id": d.ID,
		"name":          d.Name,
	})
	return d, nil
}

// UpdateDepartment applies an allow-listed partial update. Reparenting goes
// through the transactional cycle-guarded path.
func (s *Service) UpdateDepartment(scope access.Scope, id int64, dto UpdateDepartmentDTO) (*Department, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorize(scope, id); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil && *dto.Name != d.Name {
		if existing, err := s.repo.GetByName(*dto.Name); err == nil && existing != nil && existing.ID != id {
			return nil, ErrDuplicateName
		}
		d.Name = *dto.Name
	}
	if dto.Description != nil {
		d.Description = *dto.Description
	}
	if dto.ClearHeadUser {
		d.HeadUserID = nil
	} else if dto.HeadUserID != nil {
		exists, err := s.repo.UserExists(*dto.HeadUserID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check head user", err)
		}
		if !exists {
			return nil, ErrInvalidHead
		}
		d.HeadUserID = dto.HeadUserID
	}

	if dto.ChangesParent() {
		newParent := dto.ParentID
		if dto.MoveToRoot {
			newParent = nil
		}
		if err := s.validateReparent(scope, d, newParent); err != nil {
			return nil, err
		}
		d.ParentID = newParent

		// one transaction for the whole update: the repository repeats the
		// cycle check against a locked snapshot, and a failure leaves neither
		// the move nor the column changes behind
		if err := s.repo.UpdateAndReparent(d, newParent); err != nil {
			if err == hierarchy.ErrCycleDetected {
				return nil, ErrWouldCycle
			}
			s.logger.Error("failed to reparent department", "error", err, "department_id", id)
			return nil, internal.NewInternalError("failed to update department", err)
		}

		s.publish(context.Background(), events.EventDepartmentReparent, scope.UserID, map[string]interface{}{
			"department_id": d.ID,
			"new_parent_id": newParent,
		})
	} else if err := s.repo.Update(d); err != nil {
		s.logger.Error("failed to update department", "error", err, "department_id", id)
		return nil, internal.NewInternalError("failed to update department", err)
	}

	s.publish(context.Background(), events.EventDepartmentUpdated, scope.UserID, map[string]interface{}{
		"department_id": d.ID,
	})
	return d, nil
}

func (s *Service) validateReparent(scope access.Scope, d *Department, newParent *int64) error {
	if newParent != nil {
		if *newParent == d.ID {
			return ErrWouldCycle
		}
		ok, err := s.engine.CanAccessDepartment(scope, *newParent)
		if err != nil {
			return internal.NewInternalError("failed to check parent access", err)
		}
		if !ok {
			return internal.ErrAccessDenied
		}
		if _, err := s.repo.GetByID(*newParent); err != nil {
			return ErrInvalidParent
		}
	}

	parents, err := s.repo.ParentMap()
	if err != nil {
		return internal.NewInternalError("failed to load department tree", err)
	}
	if hierarchy.NewForest(parents).WouldCycle(d.ID, newParent) {
		s.logger.Warn("reparent rejected: would create cycle",
			"department_id", d.ID,
			"new_parent_id", newParent)
		return ErrWouldCycle
	}
	return nil
}

// DeleteDepartment removes a unit according to the configured cascade
// policy: restrict rejects deletes of non-empty departments, reparent moves
// children, users and resources to the deleted unit's parent.
func (s *Service) DeleteDepartment(scope access.Scope, id int64) error {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return internal.ErrAccessDenied
	}
	if err := s.authorize(scope, id); err != nil {
		return err
	}

	d, err := s.getExisting(id)
	if err != nil {
		return err
	}

	parents, err := s.repo.ParentMap()
	if err != nil {
		return internal.NewInternalError("failed to load department tree", err)
	}
	children := hierarchy.NewForest(parents).ChildrenOf(id)

	userCount, err := s.repo.CountUsers(id)
	if err != nil {
		return internal.NewInternalError("failed to count department users", err)
	}
	resourceCount, err := s.repo.CountResources(id)
	if err != nil {
		return internal.NewInternalError("failed to count department resources", err)
	}

	if s.deletePolicy == internal.DeletePolicyRestrict {
		if len(children) > 0 || userCount > 0 || resourceCount > 0 {
			s.logger.Warn("delete rejected: department not empty",
				"department_id", id,
				"children", len(children),
				"users", userCount,
				"resources", resourceCount)
			return ErrNotEmpty
		}
		if err := s.repo.Delete(id); err != nil {
			return internal.NewInternalError("failed to delete department", err)
		}
	} else {
		if err := s.repo.DeleteAndReparent(id, d.ParentID); err != nil {
			return internal.NewInternalError("failed to delete department", err)
		}
	}

	s.logger.Info("department deleted", "department_id", id, "policy", s.deletePolicy, "actor_id", scope.UserID)
	s.publish(context.Background(), events.EventDepartmentDeleted, scope.UserID, map[string]interface{}{
		"department_id": id,
		"policy":        s.deletePolicy,
	})
	return nil
}

func (s *Service) authorize(scope access.Scope, id int64) error {
	ok, err := s.engine.CanAccessDepartment(scope, id)
	if err != nil {
		return internal.NewInternalError("failed to compute visible departments", err)
	}
	if !ok {
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) getExisting(id int64) (*Department, error) {
	d, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrDepartmentNotFound
	}
	return d, nil
}
