package department_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/hierarchy"
	"github.com/frahmantamala/org-management/internal/department"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDepartmentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Department Service Suite")
}

func ptr(v int64) *int64 {
	return &v
}

type mockDepartmentRepository struct {
	departments map[int64]*department.Department
	nextID      int64

	userCounts     map[int64]int64
	resourceCounts map[int64]int64
	existingUsers  map[int64]bool

	getAllError            error
	createError            error
	updateError            error
	updateAndReparentError error
	deleteError            error
	parentMapError         error

	updateAndReparentCalls int
	deleteAndReparentCalls int
}

func newMockDepartmentRepository() *mockDepartmentRepository {
	return &mockDepartmentRepository{
		departments:    make(map[int64]*department.Department),
		nextID:         1,
		userCounts:     make(map[int64]int64),
		resourceCounts: make(map[int64]int64),
		existingUsers:  make(map[int64]bool),
	}
}

func (m *mockDepartmentRepository) add(d *department.Department) *department.Department {
	d.ID = m.nextID
	m.nextID++
	m.departments[d.ID] = d
	return d
}

func (m *mockDepartmentRepository) GetAll() ([]*department.Department, error) {
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	out := make([]*department.Department, 0, len(m.departments))
	for _, d := range m.departments {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDepartmentRepository) GetByID(id int64) (*department.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	// a copy, like the real repository: callers mutate their own snapshot
	// and nothing lands in the store until a write method succeeds
	cp := *d
	return &cp, nil
}

func (m *mockDepartmentRepository) GetByName(name string) (*department.Department, error) {
	for _, d := range m.departments {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *mockDepartmentRepository) Create(d *department.Department) error {
	if m.createError != nil {
		return m.createError
	}
	m.add(d)
	return nil
}

func (m *mockDepartmentRepository) Update(d *department.Department) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.departments[d.ID] = d
	return nil
}

func (m *mockDepartmentRepository) UpdateAndReparent(d *department.Department, newParentID *int64) error {
	m.updateAndReparentCalls++
	if m.updateAndReparentError != nil {
		return m.updateAndReparentError
	}
	cp := *d
	cp.ParentID = newParentID
	m.departments[d.ID] = &cp
	return nil
}

func (m *mockDepartmentRepository) Delete(id int64) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.departments, id)
	return nil
}

func (m *mockDepartmentRepository) DeleteAndReparent(id int64, newParentID *int64) error {
	m.deleteAndReparentCalls++
	if m.deleteError != nil {
		return m.deleteError
	}
	for _, d := range m.departments {
		if d.ParentID != nil && *d.ParentID == id {
			d.ParentID = newParentID
		}
	}
	delete(m.departments, id)
	return nil
}

func (m *mockDepartmentRepository) ParentMap() (map[int64]*int64, error) {
	if m.parentMapError != nil {
		return nil, m.parentMapError
	}
	parents := make(map[int64]*int64, len(m.departments))
	for id, d := range m.departments {
		parents[id] = d.ParentID
	}
	return parents, nil
}

func (m *mockDepartmentRepository) CountUsers(departmentID int64) (int64, error) {
	return m.userCounts[departmentID], nil
}

func (m *mockDepartmentRepository) CountResources(departmentID int64) (int64, error) {
	return m.resourceCounts[departmentID], nil
}

func (m *mockDepartmentRepository) UserExists(userID int64) (bool, error) {
	return m.existingUsers[userID], nil
}

type mockAccessEngine struct {
	visible access.IDSet
	err     error
}

func (m *mockAccessEngine) VisibleDepartmentIDs(scope access.Scope) (access.IDSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.visible, nil
}

func (m *mockAccessEngine) CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.visible.Contains(departmentID), nil
}

var _ = Describe("DepartmentService", func() {
	var (
		repo    *mockDepartmentRepository
		engine  *mockAccessEngine
		service *department.Service
		logger  *slog.Logger

		orgAdmin access.Scope

		engineering *department.Department
		backend     *department.Department
		platform    *department.Department
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockDepartmentRepository()

		// Engineering -> Backend -> Platform
		engineering = repo.add(&department.Department{Name: "Engineering"})
		backend = repo.add(&department.Department{Name: "Backend", ParentID: ptr(engineering.ID)})
		platform = repo.add(&department.Department{Name: "Platform", ParentID: ptr(backend.ID)})

		engine = &mockAccessEngine{visible: access.IDSet{
			engineering.ID: {},
			backend.ID:     {},
			platform.ID:    {},
		}}
		orgAdmin = access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(engineering.ID)}

		service = department.NewService(repo, engine, nil, internal.DeletePolicyRestrict, logger)
	})

	Describe("ListDepartments", func() {
		It("should return only departments inside the visible set", func() {
			// Given a unit admin who can see backend only
			engine.visible = access.IDSet{backend.ID: {}}

			// When listing
			result, err := service.ListDepartments(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(backend.ID)})

			// Then only backend comes back
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal(backend.ID))
		})
	})

	Describe("GetDepartment", func() {
		It("should return a visible department", func() {
			result, err := service.GetDepartment(orgAdmin, backend.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Name).To(Equal("Backend"))
		})

		It("should deny a department outside the visible set", func() {
			engine.visible = access.IDSet{backend.ID: {}}

			_, err := service.GetDepartment(orgAdmin, engineering.ID)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should deny an id that does not exist with the same error", func() {
			// unknown ids must not be distinguishable from forbidden ones
			_, err := service.GetDepartment(orgAdmin, 999)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("GetSubtree", func() {
		It("should return the department plus its transitive descendants", func() {
			view, err := service.GetSubtree(orgAdmin, engineering.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Department.ID).To(Equal(engineering.ID))
			Expect(view.Descendants).To(HaveLen(2))
		})

		It("should omit descendants outside the visible set", func() {
			engine.visible = access.IDSet{engineering.ID: {}, backend.ID: {}}

			view, err := service.GetSubtree(orgAdmin, engineering.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Descendants).To(HaveLen(1))
			Expect(view.Descendants[0].ID).To(Equal(backend.ID))
		})
	})

	Describe("GetAncestors", func() {
		It("should return the chain from immediate parent to root", func() {
			ancestors, err := service.GetAncestors(orgAdmin, platform.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(ancestors).To(HaveLen(2))
			Expect(ancestors[0].ID).To(Equal(backend.ID))
			Expect(ancestors[1].ID).To(Equal(engineering.ID))
		})

		It("should return an empty chain for a root department", func() {
			ancestors, err := service.GetAncestors(orgAdmin, engineering.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(ancestors).To(BeEmpty())
		})

		It("should surface a persisted cycle as an internal error", func() {
			// corrupt the stored tree behind the service's back
			engineering.ParentID = ptr(platform.ID)

			_, err := service.GetAncestors(orgAdmin, platform.ID)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("CreateDepartment", func() {
		It("should create a department under a visible parent", func() {
			dto := department.CreateDepartmentDTO{Name: "Data", ParentID: ptr(backend.ID)}

			result, err := service.CreateDepartment(orgAdmin, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ID).NotTo(BeZero())
			Expect(*result.ParentID).To(Equal(backend.ID))
		})

		It("should reject callers below ORG_ADMIN", func() {
			dto := department.CreateDepartmentDTO{Name: "Data"}

			_, err := service.CreateDepartment(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(backend.ID)}, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should reject a duplicate name", func() {
			dto := department.CreateDepartmentDTO{Name: "Backend"}

			_, err := service.CreateDepartment(orgAdmin, dto)

			Expect(err).To(MatchError(department.ErrDuplicateName))
		})

		It("should reject a blank name", func() {
			dto := department.CreateDepartmentDTO{Name: "   "}

			_, err := service.CreateDepartment(orgAdmin, dto)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should reject a head user that does not exist", func() {
			dto := department.CreateDepartmentDTO{Name: "Data", HeadUserID: ptr(int64(77))}

			_, err := service.CreateDepartment(orgAdmin, dto)

			Expect(err).To(MatchError(department.ErrInvalidHead))
		})
	})

	Describe("UpdateDepartment", func() {
		It("should apply name and description changes", func() {
			name := "Core Backend"
			desc := "owns the service platform"
			dto := department.UpdateDepartmentDTO{Name: &name, Description: &desc}

			result, err := service.UpdateDepartment(orgAdmin, backend.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Name).To(Equal("Core Backend"))
			Expect(result.Description).To(Equal("owns the service platform"))
		})

		Context("when reparenting", func() {
			It("should reject moving a department under itself", func() {
				dto := department.UpdateDepartmentDTO{ParentID: ptr(backend.ID)}

				_, err := service.UpdateDepartment(orgAdmin, backend.ID, dto)

				Expect(err).To(MatchError(department.ErrWouldCycle))
				Expect(repo.updateAndReparentCalls).To(BeZero())
			})

			It("should reject moving a department under its own descendant", func() {
				dto := department.UpdateDepartmentDTO{ParentID: ptr(platform.ID)}

				_, err := service.UpdateDepartment(orgAdmin, engineering.ID, dto)

				Expect(err).To(MatchError(department.ErrWouldCycle))
				Expect(repo.updateAndReparentCalls).To(BeZero())
			})

			It("should move a department under an unrelated parent", func() {
				hr := repo.add(&department.Department{Name: "HR"})
				engine.visible.Add(hr.ID)
				dto := department.UpdateDepartmentDTO{ParentID: ptr(hr.ID)}

				result, err := service.UpdateDepartment(orgAdmin, platform.ID, dto)

				Expect(err).NotTo(HaveOccurred())
				Expect(*result.ParentID).To(Equal(hr.ID))
				Expect(repo.updateAndReparentCalls).To(Equal(1))
			})

			It("should move a department to root", func() {
				dto := department.UpdateDepartmentDTO{MoveToRoot: true}

				result, err := service.UpdateDepartment(orgAdmin, backend.ID, dto)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.ParentID).To(BeNil())
			})

			It("should map a transactional cycle rejection from the repository", func() {
				hr := repo.add(&department.Department{Name: "HR"})
				engine.visible.Add(hr.ID)
				repo.updateAndReparentError = hierarchy.ErrCycleDetected
				dto := department.UpdateDepartmentDTO{ParentID: ptr(hr.ID)}

				_, err := service.UpdateDepartment(orgAdmin, backend.ID, dto)

				Expect(err).To(MatchError(department.ErrWouldCycle))
			})

			It("should commit the rename and the move through a single write", func() {
				hr := repo.add(&department.Department{Name: "HR"})
				engine.visible.Add(hr.ID)
				// a plain Update on this path would split the write in two
				repo.updateError = errors.New("plain update must not run")
				name := "Core Backend"
				dto := department.UpdateDepartmentDTO{Name: &name, ParentID: ptr(hr.ID)}

				result, err := service.UpdateDepartment(orgAdmin, platform.ID, dto)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Name).To(Equal("Core Backend"))
				Expect(*result.ParentID).To(Equal(hr.ID))
				Expect(repo.updateAndReparentCalls).To(Equal(1))

				stored := repo.departments[platform.ID]
				Expect(stored.Name).To(Equal("Core Backend"))
				Expect(*stored.ParentID).To(Equal(hr.ID))
			})

			It("should leave the department untouched when the combined write fails", func() {
				hr := repo.add(&department.Department{Name: "HR"})
				engine.visible.Add(hr.ID)
				repo.updateAndReparentError = errors.New("connection lost")
				name := "Core Backend"
				dto := department.UpdateDepartmentDTO{Name: &name, ParentID: ptr(hr.ID)}

				_, err := service.UpdateDepartment(orgAdmin, backend.ID, dto)

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))

				stored := repo.departments[backend.ID]
				Expect(stored.Name).To(Equal("Backend"))
				Expect(*stored.ParentID).To(Equal(engineering.ID))
			})
		})
	})

	Describe("DeleteDepartment", func() {
		Context("with the restrict policy", func() {
			It("should reject deleting a department with children", func() {
				err := service.DeleteDepartment(orgAdmin, backend.ID)

				Expect(err).To(MatchError(department.ErrNotEmpty))
			})

			It("should reject deleting a department with users", func() {
				repo.userCounts[platform.ID] = 3

				err := service.DeleteDepartment(orgAdmin, platform.ID)

				Expect(err).To(MatchError(department.ErrNotEmpty))
			})

			It("should delete an empty leaf", func() {
				err := service.DeleteDepartment(orgAdmin, platform.ID)

				Expect(err).NotTo(HaveOccurred())
				_, getErr := repo.GetByID(platform.ID)
				Expect(getErr).To(HaveOccurred())
			})
		})

		Context("with the reparent policy", func() {
			BeforeEach(func() {
				service = department.NewService(repo, engine, nil, internal.DeletePolicyReparent, logger)
			})

			It("should move children to the deleted department's parent", func() {
				err := service.DeleteDepartment(orgAdmin, backend.ID)

				Expect(err).NotTo(HaveOccurred())
				Expect(repo.deleteAndReparentCalls).To(Equal(1))
				Expect(*platform.ParentID).To(Equal(engineering.ID))
			})
		})

		It("should reject callers below ORG_ADMIN", func() {
			err := service.DeleteDepartment(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(backend.ID)}, backend.ID)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})
})
