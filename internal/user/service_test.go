package user_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

func ptr(v int64) *int64 {
	return &v
}

type mockUserRepository struct {
	users  map[int64]*user.User
	nextID int64
	heads  map[int64]*user.User
	depts  map[int64]bool

	createError     error
	updateError     error
	setManagerError error
	deleteError     error

	setManagerCalls int
	deleteCalls     int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[int64]*user.User),
		nextID: 1,
		heads:  make(map[int64]*user.User),
		depts:  make(map[int64]bool),
	}
}

func (m *mockUserRepository) add(u *user.User) *user.User {
	u.ID = m.nextID
	m.nextID++
	if u.PasswordHash == "" {
		u.PasswordHash = "x"
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepository) GetAll() ([]*user.User, error) {
	out := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (m *mockUserRepository) GetByEmail(email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *mockUserRepository) Create(u *user.User) error {
	if m.createError != nil {
		return m.createError
	}
	m.add(u)
	return nil
}

func (m *mockUserRepository) Update(u *user.User) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) SetManager(id int64, managerID *int64) error {
	m.setManagerCalls++
	if m.setManagerError != nil {
		return m.setManagerError
	}
	if u, ok := m.users[id]; ok {
		u.ManagerID = managerID
	}
	return nil
}

func (m *mockUserRepository) Delete(id int64) error {
	m.deleteCalls++
	if m.deleteError != nil {
		return m.deleteError
	}
	deleted := m.users[id]
	for _, u := range m.users {
		if u.ManagerID != nil && *u.ManagerID == id {
			u.ManagerID = deleted.ManagerID
		}
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) ManagerMap() (map[int64]*int64, error) {
	managers := make(map[int64]*int64, len(m.users))
	for id, u := range m.users {
		managers[id] = u.ManagerID
	}
	return managers, nil
}

func (m *mockUserRepository) DepartmentExists(id int64) (bool, error) {
	return m.depts[id], nil
}

func (m *mockUserRepository) DepartmentHead(departmentID int64) (*user.User, error) {
	return m.heads[departmentID], nil
}

type mockAccessEngine struct {
	visibleUsers access.IDSet
	visibleDepts access.IDSet
	err          error
}

func (m *mockAccessEngine) VisibleUserIDs(scope access.Scope) (access.IDSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.visibleUsers, nil
}

func (m *mockAccessEngine) CanAccessUser(scope access.Scope, userID int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.visibleUsers.Contains(userID), nil
}

func (m *mockAccessEngine) CanAccessDepartment(scope access.Scope, departmentID int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.visibleDepts.Contains(departmentID), nil
}

var _ = Describe("UserService", func() {
	var (
		repo    *mockUserRepository
		engine  *mockAccessEngine
		service *user.Service
		logger  *slog.Logger

		unitAdmin access.Scope
		orgAdmin  access.Scope

		admin  *user.User
		lead   *user.User
		member *user.User
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockUserRepository()

		// admin manages lead, lead manages member
		admin = repo.add(&user.User{Email: "admin@example.com", Name: "Admin", Role: access.RoleOrgAdmin, DepartmentID: ptr(1), IsActive: true})
		lead = repo.add(&user.User{Email: "lead@example.com", Name: "Lead", Role: access.RoleUnitAdmin, DepartmentID: ptr(2), ManagerID: ptr(admin.ID), IsActive: true})
		member = repo.add(&user.User{Email: "member@example.com", Name: "Member", Role: access.RoleMember, DepartmentID: ptr(2), ManagerID: ptr(lead.ID), IsActive: true})

		repo.depts[1] = true
		repo.depts[2] = true

		engine = &mockAccessEngine{
			visibleUsers: access.IDSet{admin.ID: {}, lead.ID: {}, member.ID: {}},
			visibleDepts: access.IDSet{1: {}, 2: {}},
		}
		unitAdmin = access.Scope{UserID: lead.ID, Role: access.RoleUnitAdmin, DepartmentID: ptr(2)}
		orgAdmin = access.Scope{UserID: admin.ID, Role: access.RoleOrgAdmin, DepartmentID: ptr(1)}

		service = user.NewService(repo, engine, nil, bcrypt.MinCost, logger)
	})

	Describe("ListUsers", func() {
		It("should return only users inside the visible set", func() {
			engine.visibleUsers = access.IDSet{member.ID: {}}

			result, err := service.ListUsers(access.Scope{UserID: member.ID, Role: access.RoleMember})

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal(member.ID))
		})
	})

	Describe("GetUser", func() {
		It("should deny an id outside the visible set", func() {
			engine.visibleUsers = access.IDSet{member.ID: {}}

			_, err := service.GetUser(access.Scope{UserID: member.ID, Role: access.RoleMember}, lead.ID)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should deny an id that does not exist with the same error", func() {
			_, err := service.GetUser(unitAdmin, 999)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("CreateUser", func() {
		It("should hash the password and default the account to active", func() {
			dto := user.CreateUserDTO{
				Email:        "new@example.com",
				Name:         "New Person",
				Password:     "s3cret-pass",
				Role:         access.RoleMember,
				DepartmentID: ptr(2),
			}

			result, err := service.CreateUser(unitAdmin, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsActive).To(BeTrue())
			Expect(result.PasswordHash).NotTo(Equal("s3cret-pass"))
			Expect(bcrypt.CompareHashAndPassword([]byte(result.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
		})

		It("should reject a MEMBER caller", func() {
			dto := user.CreateUserDTO{Email: "new@example.com", Name: "New", Password: "s3cret-pass", Role: access.RoleMember}

			_, err := service.CreateUser(access.Scope{UserID: member.ID, Role: access.RoleMember}, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should refuse to grant a role above the caller's own", func() {
			dto := user.CreateUserDTO{Email: "new@example.com", Name: "New", Password: "s3cret-pass", Role: access.RoleOrgAdmin}

			_, err := service.CreateUser(unitAdmin, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should reject a duplicate email", func() {
			dto := user.CreateUserDTO{Email: "member@example.com", Name: "Clone", Password: "s3cret-pass", Role: access.RoleMember}

			_, err := service.CreateUser(unitAdmin, dto)

			Expect(err).To(MatchError(user.ErrDuplicateEmail))
		})

		It("should reject an inactive manager", func() {
			lead.IsActive = false
			dto := user.CreateUserDTO{Email: "new@example.com", Name: "New", Password: "s3cret-pass", Role: access.RoleMember, ManagerID: ptr(lead.ID)}

			_, err := service.CreateUser(orgAdmin, dto)

			Expect(err).To(MatchError(user.ErrInvalidManager))
		})

		It("should reject a department outside the caller's visible set", func() {
			engine.visibleDepts = access.IDSet{2: {}}
			dto := user.CreateUserDTO{Email: "new@example.com", Name: "New", Password: "s3cret-pass", Role: access.RoleMember, DepartmentID: ptr(int64(1))}

			_, err := service.CreateUser(unitAdmin, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("UpdateUser", func() {
		It("should let a member update their own name and email", func() {
			name := "Renamed"
			email := "renamed@example.com"
			dto := user.UpdateUserDTO{Name: &name, Email: &email}

			result, err := service.UpdateUser(access.Scope{UserID: member.ID, Role: access.RoleMember}, member.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Name).To(Equal("Renamed"))
			Expect(result.Email).To(Equal("renamed@example.com"))
		})

		It("should refuse a member touching someone else", func() {
			name := "Hijacked"
			dto := user.UpdateUserDTO{Name: &name}

			_, err := service.UpdateUser(access.Scope{UserID: member.ID, Role: access.RoleMember}, lead.ID, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should refuse a member touching admin fields on themselves", func() {
			role := access.RoleOrgAdmin
			dto := user.UpdateUserDTO{Role: &role}

			_, err := service.UpdateUser(access.Scope{UserID: member.ID, Role: access.RoleMember}, member.ID, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should refuse granting a role above the caller's own", func() {
			role := access.RoleOrgAdmin
			dto := user.UpdateUserDTO{Role: &role}

			_, err := service.UpdateUser(unitAdmin, member.ID, dto)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should let an admin deactivate an account", func() {
			inactive := false
			dto := user.UpdateUserDTO{IsActive: &inactive}

			result, err := service.UpdateUser(orgAdmin, member.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsActive).To(BeFalse())
		})
	})

	Describe("ChangeManager", func() {
		It("should move a user under a new manager", func() {
			result, err := service.ChangeManager(orgAdmin, member.ID, ptr(admin.ID))

			Expect(err).NotTo(HaveOccurred())
			Expect(*result.ManagerID).To(Equal(admin.ID))
			Expect(repo.setManagerCalls).To(Equal(1))
		})

		It("should reject a user managing themselves", func() {
			_, err := service.ChangeManager(orgAdmin, lead.ID, ptr(lead.ID))

			Expect(err).To(MatchError(user.ErrManagerCycle))
			Expect(repo.setManagerCalls).To(BeZero())
		})

		It("should reject reporting to a transitive subordinate", func() {
			// admin -> lead -> member, so admin under member closes a loop
			_, err := service.ChangeManager(orgAdmin, admin.ID, ptr(member.ID))

			Expect(err).To(MatchError(user.ErrManagerCycle))
			Expect(repo.setManagerCalls).To(BeZero())
		})

		It("should detach a user from the reporting forest", func() {
			result, err := service.ChangeManager(orgAdmin, member.ID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ManagerID).To(BeNil())
		})

		It("should reject callers below UNIT_ADMIN", func() {
			_, err := service.ChangeManager(access.Scope{UserID: member.ID, Role: access.RoleMember}, member.ID, nil)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("DeleteUser", func() {
		It("should delete a visible user", func() {
			err := service.DeleteUser(orgAdmin, member.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(repo.deleteCalls).To(Equal(1))
		})

		It("should refuse deleting your own account", func() {
			err := service.DeleteUser(orgAdmin, admin.ID)

			Expect(err).To(MatchError(user.ErrCannotDeleteSelf))
		})

		It("should reject callers below ORG_ADMIN", func() {
			err := service.DeleteUser(unitAdmin, member.ID)

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})
	})

	Describe("GetHierarchy", func() {
		It("should return the chain, reports and subordinates", func() {
			repo.heads[2] = lead

			view, err := service.GetHierarchy(orgAdmin, lead.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.User.ID).To(Equal(lead.ID))
			Expect(view.ReportingChain).To(HaveLen(1))
			Expect(view.ReportingChain[0].ID).To(Equal(admin.ID))
			Expect(view.DirectReports).To(HaveLen(1))
			Expect(view.DirectReports[0].ID).To(Equal(member.ID))
			Expect(view.Subordinates).To(HaveLen(1))
			Expect(view.DepartmentHead.ID).To(Equal(lead.ID))
		})

		It("should surface a persisted reporting cycle as an internal error", func() {
			admin.ManagerID = ptr(member.ID)

			_, err := service.GetHierarchy(orgAdmin, member.ID)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})
})
