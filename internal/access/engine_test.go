package access_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/frahmantamala/org-management/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAccessEngine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Access Engine Suite")
}

func ptr(v int64) *int64 {
	return &v
}

type mockDirectoryRepository struct {
	departmentParents map[int64]*int64
	userDepartments   map[int64]*int64
	resourceOwners    map[int64]access.ResourceOwner

	departmentsError error
	usersError       error
	resourcesError   error
}

func (m *mockDirectoryRepository) DepartmentParents() (map[int64]*int64, error) {
	if m.departmentsError != nil {
		return nil, m.departmentsError
	}
	return m.departmentParents, nil
}

func (m *mockDirectoryRepository) UserDepartments() (map[int64]*int64, error) {
	if m.usersError != nil {
		return nil, m.usersError
	}
	return m.userDepartments, nil
}

func (m *mockDirectoryRepository) ResourceOwners() (map[int64]access.ResourceOwner, error) {
	if m.resourcesError != nil {
		return nil, m.resourcesError
	}
	return m.resourceOwners, nil
}

var _ = Describe("Engine", func() {
	var (
		repo   *mockDirectoryRepository
		engine *access.Engine
		logger *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		// Engineering (1) with child Backend (2), plus an unrelated HR (3)
		repo = &mockDirectoryRepository{
			departmentParents: map[int64]*int64{
				1: nil,
				2: ptr(1),
				3: nil,
			},
			userDepartments: map[int64]*int64{
				10: ptr(1), // engineering admin
				20: ptr(2), // backend admin
				21: ptr(2), // backend member
				30: ptr(3), // hr member
				40: nil,    // unassigned
			},
			resourceOwners: map[int64]access.ResourceOwner{
				100: {DepartmentID: ptr(1)},
				200: {DepartmentID: ptr(2), AssignedUserID: ptr(21)},
				300: {DepartmentID: ptr(3)},
				400: {}, // orphan resource
			},
		}
		engine = access.NewEngine(repo, logger)
	})

	Describe("VisibleDepartmentIDs", func() {
		It("should give ROOT_ADMIN the whole tree", func() {
			visible, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 1, Role: access.RoleRootAdmin})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(1), int64(2), int64(3)))
		})

		It("should give ORG_ADMIN their department and its descendants", func() {
			visible, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(1)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(1), int64(2)))
		})

		It("should give an unassigned ORG_ADMIN the whole tree", func() {
			visible, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 40, Role: access.RoleOrgAdmin})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(1), int64(2), int64(3)))
		})

		It("should give UNIT_ADMIN only their own department", func() {
			visible, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(2)))
		})

		It("should give MEMBER no departments", func() {
			visible, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 21, Role: access.RoleMember, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(BeEmpty())
		})

		It("should keep each broader role a superset of the narrower one at the same position", func() {
			member, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 20, Role: access.RoleMember, DepartmentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			unitAdmin, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			orgAdmin, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 20, Role: access.RoleOrgAdmin, DepartmentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())
			rootAdmin, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 20, Role: access.RoleRootAdmin, DepartmentID: ptr(2)})
			Expect(err).NotTo(HaveOccurred())

			for id := range member {
				Expect(unitAdmin.Contains(id)).To(BeTrue())
			}
			for id := range unitAdmin {
				Expect(orgAdmin.Contains(id)).To(BeTrue())
			}
			for id := range orgAdmin {
				Expect(rootAdmin.Contains(id)).To(BeTrue())
			}
		})

		It("should propagate repository errors", func() {
			repo.departmentsError = os.ErrDeadlineExceeded

			_, err := engine.VisibleDepartmentIDs(access.Scope{UserID: 1, Role: access.RoleRootAdmin})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("VisibleUserIDs", func() {
		It("should give MEMBER only themselves", func() {
			visible, err := engine.VisibleUserIDs(access.Scope{UserID: 21, Role: access.RoleMember, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(21)))
		})

		It("should give UNIT_ADMIN the users of their department plus themselves", func() {
			visible, err := engine.VisibleUserIDs(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(20), int64(21)))
		})

		It("should give ORG_ADMIN the users of their subtree", func() {
			visible, err := engine.VisibleUserIDs(access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(1)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(10), int64(20), int64(21)))
		})

		It("should give ROOT_ADMIN every user including the unassigned", func() {
			visible, err := engine.VisibleUserIDs(access.Scope{UserID: 1, Role: access.RoleRootAdmin})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Contains(40)).To(BeTrue())
			Expect(visible).To(HaveLen(6))
		})
	})

	Describe("VisibleResourceIDs", func() {
		It("should give MEMBER only resources assigned to them", func() {
			visible, err := engine.VisibleResourceIDs(access.Scope{UserID: 21, Role: access.RoleMember, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(200)))
		})

		It("should give UNIT_ADMIN resources owned by their department", func() {
			visible, err := engine.VisibleResourceIDs(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(200)))
		})

		It("should give ORG_ADMIN resources across their subtree", func() {
			visible, err := engine.VisibleResourceIDs(access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(1)})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(100), int64(200)))
		})

		It("should give ROOT_ADMIN everything including unowned resources", func() {
			visible, err := engine.VisibleResourceIDs(access.Scope{UserID: 1, Role: access.RoleRootAdmin})

			Expect(err).NotTo(HaveOccurred())
			Expect(visible.Slice()).To(ConsistOf(int64(100), int64(200), int64(300), int64(400)))
		})
	})

	Describe("CanAccessDepartment", func() {
		It("should deny a department outside the visible set", func() {
			ok, err := engine.CanAccessDepartment(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)}, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should deny an id that does not exist at all", func() {
			// an unknown id must be indistinguishable from a forbidden one
			ok, err := engine.CanAccessDepartment(access.Scope{UserID: 20, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)}, 999)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should allow a visible department", func() {
			ok, err := engine.CanAccessDepartment(access.Scope{UserID: 10, Role: access.RoleOrgAdmin, DepartmentID: ptr(1)}, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})
})
