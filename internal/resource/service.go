package resource

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/events"
)

// Repository defines the data access methods for resources and facilities.
type Repository interface {
	GetAll() ([]*Resource, error)
	GetByID(id int64) (*Resource, error)
	Create(res *Resource) error
	Update(res *Resource) error
	Delete(id int64) error

	GetAllFacilities() ([]*Facility, error)
	GetFacilityByID(id int64) (*Facility, error)
	CreateFacility(f *Facility) error
	UpdateFacility(f *Facility) error
	DeleteFacility(id int64) error

	UserActive(userID int64) (bool, error)
	DepartmentExists(id int64) (bool, error)
}

// AccessEngine is the slice of the visibility engine this service needs.
// Facilities have no per-user assignment, so they scope purely through the
// owning department.
type AccessEngine interface {
	VisibleResourceIDs(scope access.Scope) (access.IDSet, error)
	VisibleDepartmentIDs(scope access.Scope) (access.IDSet, error)
	CanAccessResource(scope access.Scope, resourceID int64) (bool, error)
	CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error)
}

type Service struct {
	repo   Repository
	engine AccessEngine
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, engine AccessEngine, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		bus:    bus,
		logger: logger,
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

// ListResources returns every resource in the requester's visible set. For a
// MEMBER that means only resources assigned to them.
func (s *Service) ListResources(scope access.Scope) ([]*Resource, error) {
	visible, err := s.engine.VisibleResourceIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible resources", err)
	}

	all, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to list resources", "error", err)
		return nil, internal.NewInternalError("failed to list resources", err)
	}

	result := make([]*Resource, 0, len(all))
	for _, res := range all {
		if visible.Contains(res.ID) {
			result = append(result, res)
		}
	}
	return result, nil
}

func (s *Service) GetResource(scope access.Scope, id int64) (*Resource, error) {
	if err := s.authorizeResource(scope, id); err != nil {
		return nil, err
	}
	return s.getExisting(id)
}

func (s *Service) CreateResource(scope access.Scope, dto CreateResourceDTO) (*Resource, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
	}

	status := dto.Status
	if status == "" {
		status = StatusAvailable
	}

	res := &Resource{
		Name:         dto.Name,
		Type:         dto.Type,
		Status:       status,
		DepartmentID: dto.DepartmentID,
	}
	if err := s.repo.Create(res); err != nil {
		s.logger.Error("failed to create resource", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create resource", err)
	}

	s.publish(context.Background(), events.EventResourceCreated, scope.UserID, map[string]interface{}{
		"resource_id": res.ID,
		"name":        res.Name,
	})
	return res, nil
}

func (s *Service) UpdateResource(scope access.Scope, id int64, dto UpdateResourceDTO) (*Resource, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorizeResource(scope, id); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	res, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		res.Name = *dto.Name
	}
	if dto.Type != nil {
		res.Type = *dto.Type
	}
	if dto.ClearDepartment {
		res.DepartmentID = nil
	} else if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
		res.DepartmentID = dto.DepartmentID
	}
	if dto.Status != nil {
		res.Status = *dto.Status
		// retiring a resource releases whoever holds it
		if *dto.Status == StatusRetired {
			res.AssignedUserID = nil
		}
	}

	if err := s.repo.Update(res); err != nil {
		s.logger.Error("failed to update resource", "error", err, "resource_id", id)
		return nil, internal.NewInternalError("failed to update resource", err)
	}

	s.publish(context.Background(), events.EventResourceUpdated, scope.UserID, map[string]interface{}{
		"resource_id": res.ID,
	})
	return res, nil
}

func (s *Service) DeleteResource(scope access.Scope, id int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}
	if err := s.authorizeResource(scope, id); err != nil {
		return err
	}
	if _, err := s.getExisting(id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete resource", "error", err, "resource_id", id)
		return internal.NewInternalError("failed to delete resource", err)
	}

	s.publish(context.Background(), events.EventResourceDeleted, scope.UserID, map[string]interface{}{
		"resource_id": id,
	})
	return nil
}

// AssignResource hands a resource to an active user. Retired resources are
// never assignable; an occupied resource has to be released first.
func (s *Service) AssignResource(scope access.Scope, id int64, userID int64) (*Resource, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorizeResource(scope, id); err != nil {
		return nil, err
	}

	res, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}
	if res.Status == StatusRetired {
		return nil, ErrResourceRetired
	}
	if res.AssignedUserID != nil {
		return nil, ErrAlreadyAssigned
	}

	active, err := s.repo.UserActive(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check assignee", err)
	}
	if !active {
		return nil, ErrInvalidAssignee
	}

	res.AssignedUserID = &userID
	res.Status = StatusInUse
	if err := s.repo.Update(res); err != nil {
		s.logger.Error("failed to assign resource", "error", err, "resource_id", id)
		return nil, internal.NewInternalError("failed to assign resource", err)
	}

	s.logger.Info("resource assigned", "resource_id", id, "user_id", userID, "actor_id", scope.UserID)
	s.publish(context.Background(), events.EventResourceAssigned, scope.UserID, map[string]interface{}{
		"resource_id": id,
		"user_id":     userID,
	})
	return res, nil
}

// ReleaseResource returns an assigned resource to the available pool.
func (s *Service) ReleaseResource(scope access.Scope, id int64) (*Resource, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorizeResource(scope, id); err != nil {
		return nil, err
	}

	res, err := s.getExisting(id)
	if err != nil {
		return nil, err
	}
	if res.AssignedUserID == nil {
		return nil, ErrNotAssigned
	}

	res.AssignedUserID = nil
	res.Status = StatusAvailable
	if err := s.repo.Update(res); err != nil {
		s.logger.Error("failed to release resource", "error", err, "resource_id", id)
		return nil, internal.NewInternalError("failed to release resource", err)
	}

	s.publish(context.Background(), events.EventResourceReleased, scope.UserID, map[string]interface{}{
		"resource_id": id,
	})
	return res, nil
}

// ListFacilities returns facilities owned by visible departments. Facilities
// without an owning department only show to org-wide roles.
func (s *Service) ListFacilities(scope access.Scope) ([]*Facility, error) {
	visibleDepts, err := s.engine.VisibleDepartmentIDs(scope)
	if err != nil {
		return nil, internal.NewInternalError("failed to compute visible departments", err)
	}

	all, err := s.repo.GetAllFacilities()
	if err != nil {
		s.logger.Error("failed to list facilities", "error", err)
		return nil, internal.NewInternalError("failed to list facilities", err)
	}

	result := make([]*Facility, 0, len(all))
	for _, f := range all {
		if f.DepartmentID == nil {
			if scope.Role.AtLeast(access.RoleOrgAdmin) {
				result = append(result, f)
			}
			continue
		}
		if visibleDepts.Contains(*f.DepartmentID) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *Service) GetFacility(scope access.Scope, id int64) (*Facility, error) {
	f, err := s.repo.GetFacilityByID(id)
	if err != nil {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorizeFacility(scope, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) CreateFacility(scope access.Scope, dto CreateFacilityDTO) (*Facility, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
	}

	status := dto.Status
	if status == "" {
		status = StatusAvailable
	}

	f := &Facility{
		Name:         dto.Name,
		Type:         dto.Type,
		Capacity:     dto.Capacity,
		Location:     dto.Location,
		Status:       status,
		DepartmentID: dto.DepartmentID,
	}
	if err := s.repo.CreateFacility(f); err != nil {
		s.logger.Error("failed to create facility", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create facility", err)
	}
	return f, nil
}

func (s *Service) UpdateFacility(scope access.Scope, id int64, dto UpdateFacilityDTO) (*Facility, error) {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	f, err := s.repo.GetFacilityByID(id)
	if err != nil {
		return nil, internal.ErrAccessDenied
	}
	if err := s.authorizeFacility(scope, f); err != nil {
		return nil, err
	}

	if dto.Name != nil {
		f.Name = *dto.Name
	}
	if dto.Type != nil {
		f.Type = *dto.Type
	}
	if dto.Capacity != nil {
		f.Capacity = *dto.Capacity
	}
	if dto.Location != nil {
		f.Location = *dto.Location
	}
	if dto.Status != nil {
		f.Status = *dto.Status
	}
	if dto.DepartmentID != nil {
		if err := s.checkDepartment(scope, *dto.DepartmentID); err != nil {
			return nil, err
		}
		f.DepartmentID = dto.DepartmentID
	}

	if err := s.repo.UpdateFacility(f); err != nil {
		s.logger.Error("failed to update facility", "error", err, "facility_id", id)
		return nil, internal.NewInternalError("failed to update facility", err)
	}
	return f, nil
}

func (s *Service) DeleteFacility(scope access.Scope, id int64) error {
	if !scope.Role.AtLeast(access.RoleUnitAdmin) {
		return internal.ErrAccessDenied
	}

	f, err := s.repo.GetFacilityByID(id)
	if err != nil {
		return internal.ErrAccessDenied
	}
	if err := s.authorizeFacility(scope, f); err != nil {
		return err
	}

	if err := s.repo.DeleteFacility(id); err != nil {
		s.logger.Error("failed to delete facility", "error", err, "facility_id", id)
		return internal.NewInternalError("failed to delete facility", err)
	}
	return nil
}

func (s *Service) authorizeResource(scope access.Scope, id int64) error {
	ok, err := s.engine.CanAccessResource(scope, id)
	if err != nil {
		return internal.NewInternalError("failed to compute visible resources", err)
	}
	if !ok {
		return internal.ErrAccessDenied
	}
	return nil
}

func (s *Service) authorizeFacility(scope access.Scope, f *Facility) error {
	if f.DepartmentID == nil {
		if scope.Role.AtLeast(access.RoleOrgAdmin) {
			return nil
		}
		return internal.ErrAccessDenied
	}
	ok, err := s.engine.CanAccessDepartment(scope, *f.DepartmentID)
	if err != nil {
		return internal.NewInternalError("failed to compute visible departments", err)
	}
	if !ok {
		return internal.ErrAccessDenied
	}
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
		return ErrInvalidOwner
	}
	return nil
}

func (s *Service) getExisting(id int64) (*Resource, error) {
	res, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrResourceNotFound
	}
	return res, nil
}
