package resource_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/resource"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestResourceService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resource Service Suite")
}

func ptr(v int64) *int64 {
	return &v
}

type mockResourceRepository struct {
	resources  map[int64]*resource.Resource
	facilities map[int64]*resource.Facility
	nextID     int64

	activeUsers map[int64]bool
	depts       map[int64]bool

	updateError error
}

func newMockResourceRepository() *mockResourceRepository {
	return &mockResourceRepository{
		resources:   make(map[int64]*resource.Resource),
		facilities:  make(map[int64]*resource.Facility),
		nextID:      1,
		activeUsers: make(map[int64]bool),
		depts:       make(map[int64]bool),
	}
}

func (m *mockResourceRepository) addResource(res *resource.Resource) *resource.Resource {
	res.ID = m.nextID
	m.nextID++
	m.resources[res.ID] = res
	return res
}

func (m *mockResourceRepository) addFacility(f *resource.Facility) *resource.Facility {
	f.ID = m.nextID
	m.nextID++
	m.facilities[f.ID] = f
	return f
}

func (m *mockResourceRepository) GetAll() ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(m.resources))
	for _, res := range m.resources {
		out = append(out, res)
	}
	return out, nil
}

func (m *mockResourceRepository) GetByID(id int64) (*resource.Resource, error) {
	res, ok := m.resources[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return res, nil
}

func (m *mockResourceRepository) Create(res *resource.Resource) error {
	m.addResource(res)
	return nil
}

func (m *mockResourceRepository) Update(res *resource.Resource) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.resources[res.ID] = res
	return nil
}

func (m *mockResourceRepository) Delete(id int64) error {
	delete(m.resources, id)
	return nil
}

func (m *mockResourceRepository) GetAllFacilities() ([]*resource.Facility, error) {
	out := make([]*resource.Facility, 0, len(m.facilities))
	for _, f := range m.facilities {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockResourceRepository) GetFacilityByID(id int64) (*resource.Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return f, nil
}

func (m *mockResourceRepository) CreateFacility(f *resource.Facility) error {
	m.addFacility(f)
	return nil
}

func (m *mockResourceRepository) UpdateFacility(f *resource.Facility) error {
	m.facilities[f.ID] = f
	return nil
}

func (m *mockResourceRepository) DeleteFacility(id int64) error {
	delete(m.facilities, id)
	return nil
}

func (m *mockResourceRepository) UserActive(userID int64) (bool, error) {
	return m.activeUsers[userID], nil
}

func (m *mockResourceRepository) DepartmentExists(id int64) (bool, error) {
	return m.depts[id], nil
}

type mockAccessEngine struct {
	visibleResources access.IDSet
	visibleDepts     access.IDSet
}

func (m *mockAccessEngine) VisibleResourceIDs(scope access.Scope) (access.IDSet, error) {
	return m.visibleResources, nil
}

func (m *mockAccessEngine) VisibleDepartmentIDs(scope access.Scope) (access.IDSet, error) {
	return m.visibleDepts, nil
}

func (m *mockAccessEngine) CanAccessResource(scope access.Scope, resourceID int64) (bool, error) {
	return m.visibleResources.Contains(resourceID), nil
}

func (m *mockAccessEngine) CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error) {
	return m.visibleDepts.Contains(departmentID), nil
}

var _ = Describe("ResourceService", func() {
	var (
		repo    *mockResourceRepository
		engine  *mockAccessEngine
		service *resource.Service
		logger  *slog.Logger

		unitAdmin access.Scope

		laptop *resource.Resource
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockResourceRepository()

		laptop = repo.addResource(&resource.Resource{Name: "laptop-01", Type: "laptop", Status: resource.StatusAvailable, DepartmentID: ptr(2)})
		repo.depts[2] = true
		repo.activeUsers[30] = true

		engine = &mockAccessEngine{
			visibleResources: access.IDSet{laptop.ID: {}},
			visibleDepts:     access.IDSet{2: {}},
		}
		unitAdmin = access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)}

		service = resource.NewService(repo, engine, nil, logger)
	})

	Describe("AssignResource", func() {
		It("should hand an available resource to an active user", func() {
			result, err := service.AssignResource(unitAdmin, laptop.ID, 30)

			Expect(err).NotTo(HaveOccurred())
			Expect(*result.AssignedUserID).To(Equal(int64(30)))
			Expect(result.Status).To(Equal(resource.StatusInUse))
		})

		It("should never assign a retired resource", func() {
			laptop.Status = resource.StatusRetired

			_, err := service.AssignResource(unitAdmin, laptop.ID, 30)

			Expect(err).To(MatchError(resource.ErrResourceRetired))
		})

		It("should reject an already assigned resource", func() {
			laptop.AssignedUserID = ptr(int64(40))
			laptop.Status = resource.StatusInUse

			_, err := service.AssignResource(unitAdmin, laptop.ID, 30)

			Expect(err).To(MatchError(resource.ErrAlreadyAssigned))
		})

		It("should reject an inactive assignee", func() {
			repo.activeUsers[30] = false

			_, err := service.AssignResource(unitAdmin, laptop.ID, 30)

			Expect(err).To(MatchError(resource.ErrInvalidAssignee))
		})

		It("should reject callers below UNIT_ADMIN", func() {
			_, err := service.AssignResource(access.Scope{UserID: 30, Role: access.RoleMember}, laptop.ID, 30)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should deny a resource outside the visible set", func() {
			engine.visibleResources = access.IDSet{}

			_, err := service.AssignResource(unitAdmin, laptop.ID, 30)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("ReleaseResource", func() {
		It("should return an assigned resource to the available pool", func() {
			laptop.AssignedUserID = ptr(int64(30))
			laptop.Status = resource.StatusInUse

			result, err := service.ReleaseResource(unitAdmin, laptop.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.AssignedUserID).To(BeNil())
			Expect(result.Status).To(Equal(resource.StatusAvailable))
		})

		It("should reject releasing an unassigned resource", func() {
			_, err := service.ReleaseResource(unitAdmin, laptop.ID)

			Expect(err).To(MatchError(resource.ErrNotAssigned))
		})
	})

	Describe("UpdateResource", func() {
		It("should clear the assignment when retiring", func() {
			laptop.AssignedUserID = ptr(int64(30))
			laptop.Status = resource.StatusInUse
			status := resource.StatusRetired
			dto := resource.UpdateResourceDTO{Status: &status}

			result, err := service.UpdateResource(unitAdmin, laptop.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(resource.StatusRetired))
			Expect(result.AssignedUserID).To(BeNil())
		})

		It("should reject an unknown status", func() {
			status := "broken"
			dto := resource.UpdateResourceDTO{Status: &status}

			_, err := service.UpdateResource(unitAdmin, laptop.ID, dto)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStatus))
		})
	})

	Describe("CreateResource", func() {
		It("should default the status to available", func() {
			dto := resource.CreateResourceDTO{Name: "monitor-01", Type: "monitor", DepartmentID: ptr(2)}

			result, err := service.CreateResource(unitAdmin, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(resource.StatusAvailable))
		})

		It("should reject an owning department outside the visible set", func() {
			dto := resource.CreateResourceDTO{Name: "monitor-01", DepartmentID: ptr(int64(9))}

			_, err := service.CreateResource(unitAdmin, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("Facilities", func() {
		var room *resource.Facility

		BeforeEach(func() {
			room = repo.addFacility(&resource.Facility{Name: "Meeting Room A", Type: "meeting_room", Capacity: 8, Status: resource.StatusAvailable, DepartmentID: ptr(2)})
		})

		It("should list facilities owned by visible departments", func() {
			repo.addFacility(&resource.Facility{Name: "HR Room", DepartmentID: ptr(9), Status: resource.StatusAvailable})

			result, err := service.ListFacilities(unitAdmin)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal(room.ID))
		})

		It("should show unowned facilities only to org-wide roles", func() {
			lobby := repo.addFacility(&resource.Facility{Name: "Lobby", Status: resource.StatusAvailable})

			unitView, err := service.ListFacilities(unitAdmin)
			Expect(err).NotTo(HaveOccurred())
			Expect(unitView).To(HaveLen(1))

			orgView, err := service.ListFacilities(access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(orgView).To(ContainElement(lobby))
		})

		It("should deny a facility outside the visible departments with the uniform error", func() {
			hidden := repo.addFacility(&resource.Facility{Name: "HR Room", DepartmentID: ptr(9)})

			_, err := service.GetFacility(unitAdmin, hidden.ID)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should deny a facility that does not exist with the same error", func() {
			_, err := service.GetFacility(unitAdmin, 999)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should reject a negative capacity", func() {
			dto := resource.CreateFacilityDTO{Name: "Closet", Capacity: -1}

			_, err := service.CreateFacility(unitAdmin, dto)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})
})
