package access

import (
	"log/slog"

	"github.com/frahmantamala/org-management/internal/core/hierarchy"
)

// IDSet is a set of record ids.
type IDSet map[int64]struct{}

func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

// Slice returns the ids in unspecified order.
func (s IDSet) Slice() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// ResourceOwner locates a resource for scoping: the department that owns it
// and the user it is assigned to, either may be nil.
type ResourceOwner struct {
	DepartmentID   *int64
	AssignedUserID *int64
}

// DirectoryRepository supplies the adjacency snapshots the engine scopes
// against. Implementations read whole columns; the engine never issues
// per-row queries.
type DirectoryRepository interface {
	DepartmentParents() (map[int64]*int64, error)
	UserDepartments() (map[int64]*int64, error)
	ResourceOwners() (map[int64]ResourceOwner, error)
}

// Engine computes visible sets as a pure function of (role, department) and
// the department tree. Every endpoint that filters or authorizes goes
// through these three methods; read visibility and write authorization share
// the same predicate.
type Engine struct {
	repo   DirectoryRepository
	logger *slog.Logger
}

func NewEngine(repo DirectoryRepository, logger *slog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger,
	}
}

// VisibleDepartmentIDs returns the department ids the requester may see or
// act on. ROOT_ADMIN sees all; ORG_ADMIN sees their own department plus all
// descendants (everything when unassigned); UNIT_ADMIN sees only their own
// department; MEMBER sees none.
func (e *Engine) VisibleDepartmentIDs(scope Scope) (IDSet, error) {
	parents, err := e.repo.DepartmentParents()
	if err != nil {
		e.logger.Error("failed to load department tree", "error", err)
		return nil, err
	}
	forest := hierarchy.NewForest(parents)
	visible := make(IDSet)

	switch {
	case scope.Role == RoleRootAdmin:
		for id := range parents {
			visible.Add(id)
		}
	case scope.Role == RoleOrgAdmin && scope.DepartmentID == nil:
		// an org admin without a home department administers the whole tree
		for id := range parents {
			visible.Add(id)
		}
	case scope.Role == RoleOrgAdmin:
		if forest.Contains(*scope.DepartmentID) {
			visible.Add(*scope.DepartmentID)
			for id := range forest.DescendantsOf(*scope.DepartmentID) {
				visible.Add(id)
			}
		}
	case scope.Role == RoleUnitAdmin && scope.DepartmentID != nil:
		if forest.Contains(*scope.DepartmentID) {
			visible.Add(*scope.DepartmentID)
		}
	}
	return visible, nil
}

// VisibleUserIDs returns the user ids the requester may see or act on.
// Members see only themselves; admins see the users inside their visible
// departments plus themselves.
func (e *Engine) VisibleUserIDs(scope Scope) (IDSet, error) {
	visible := make(IDSet)
	visible.Add(scope.UserID)

	if scope.Role == RoleMember {
		return visible, nil
	}

	userDepts, err := e.repo.UserDepartments()
	if err != nil {
		e.logger.Error("failed to load user directory", "error", err)
		return nil, err
	}

	if scope.Role == RoleRootAdmin {
		for id := range userDepts {
			visible.Add(id)
		}
		return visible, nil
	}

	visibleDepts, err := e.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, err
	}
	for userID, deptID := range userDepts {
		if deptID != nil && visibleDepts.Contains(*deptID) {
			visible.Add(userID)
		}
	}
	return visible, nil
}

// VisibleResourceIDs returns the resource ids the requester may see or act
// on. Members see resources assigned to themselves; admins see resources
// owned by their visible departments.
func (e *Engine) VisibleResourceIDs(scope Scope) (IDSet, error) {
	owners, err := e.repo.ResourceOwners()
	if err != nil {
		e.logger.Error("failed to load resource ownership", "error", err)
		return nil, err
	}
	visible := make(IDSet)

	if scope.Role == RoleRootAdmin {
		for id := range owners {
			visible.Add(id)
		}
		return visible, nil
	}

	if scope.Role == RoleMember {
		for id, owner := range owners {
			if owner.AssignedUserID != nil && *owner.AssignedUserID == scope.UserID {
				visible.Add(id)
			}
		}
		return visible, nil
	}

	visibleDepts, err := e.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, err
	}
	for id, owner := range owners {
		if owner.DepartmentID != nil && visibleDepts.Contains(*owner.DepartmentID) {
			visible.Add(id)
		}
	}
	return visible, nil
}

// CanAccessDepartment checks a single department id against the visible set.
func (e *Engine) CanAccessDepartment(scope Scope, departmentID int64) (bool, error) {
	visible, err := e.VisibleDepartmentIDs(scope)
	if err != nil {
		return false, err
	}
	return visible.Contains(departmentID), nil
}

// CanAccessUser checks a single user id against the visible set.
func (e *Engine) CanAccessUser(scope Scope, userID int64) (bool, error) {
	visible, err := e.VisibleUserIDs(scope)
	if err != nil {
		return false, err
	}
	return visible.Contains(userID), nil
}

// CanAccessResource checks a single resource id against the visible set.
func (e *Engine) CanAccessResource(scope Scope, resourceID int64) (bool, error) {
	visible, err := e.VisibleResourceIDs(scope)
	if err != nil {
		return false, err
	}
	return visible.Contains(resourceID), nil
}
