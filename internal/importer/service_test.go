package importer_test

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/importer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestImporterService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Importer Service Suite")
}

type mockImportRepository struct {
	jobs        map[string]*importer.ImportJob
	deptNames   map[string]bool
	userEmails  map[string]bool
	departments []importer.DepartmentRow
	users       []importer.UserRow
	facilities  []importer.FacilityRow

	importError error
}

func newMockImportRepository() *mockImportRepository {
	return &mockImportRepository{
		jobs:       make(map[string]*importer.ImportJob),
		deptNames:  make(map[string]bool),
		userEmails: make(map[string]bool),
	}
}

func (m *mockImportRepository) CreateJob(job *importer.ImportJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockImportRepository) UpdateJob(job *importer.ImportJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockImportRepository) GetJob(id string) (*importer.ImportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return job, nil
}

func (m *mockImportRepository) DepartmentNameExists(name string) (bool, error) {
	return m.deptNames[name], nil
}

func (m *mockImportRepository) UserEmailExists(email string) (bool, error) {
	return m.userEmails[email], nil
}

func (m *mockImportRepository) ImportDepartments(rows []importer.DepartmentRow) error {
	if m.importError != nil {
		return m.importError
	}
	m.departments = append(m.departments, rows...)
	return nil
}

func (m *mockImportRepository) ImportUsers(rows []importer.UserRow) error {
	if m.importError != nil {
		return m.importError
	}
	m.users = append(m.users, rows...)
	return nil
}

func (m *mockImportRepository) ImportFacilities(rows []importer.FacilityRow) error {
	if m.importError != nil {
		return m.importError
	}
	m.facilities = append(m.facilities, rows...)
	return nil
}

var _ = Describe("ImporterService", func() {
	var (
		repo    *mockImportRepository
		service *importer.Service
		logger  *slog.Logger

		orgAdmin access.Scope
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockImportRepository()
		orgAdmin = access.Scope{UserID: 10, Role: access.RoleOrgAdmin}

		service = importer.NewService(repo, nil, bcrypt.MinCost, logger)
	})

	Describe("ImportDepartments", func() {
		It("should commit a clean batch with in-file parent references", func() {
			csv := "name,description,parent_name,head_email\n" +
				"Engineering,builds things,,\n" +
				"Backend,,Engineering,\n" +
				"Platform,,Backend,\n"

			job, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusCompleted))
			Expect(job.TotalRows).To(Equal(3))
			Expect(job.ImportedRows).To(Equal(3))
			Expect(repo.departments).To(HaveLen(3))
		})

		It("should commit zero rows when any row is invalid", func() {
			// the middle row references a head user that does not exist
			csv := "name,description,parent_name,head_email\n" +
				"Engineering,,,\n" +
				"Backend,,Engineering,ghost@example.com\n" +
				"Platform,,Engineering,\n"

			job, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job).NotTo(BeNil())
			Expect(job.Status).To(Equal(importer.StatusFailed))
			Expect(job.ImportedRows).To(BeZero())
			Expect(repo.departments).To(BeEmpty())

			Expect(job.Errors).To(HaveLen(1))
			Expect(job.Errors[0].Row).To(Equal(3))
			Expect(job.Errors[0].Message).To(ContainSubstring("ghost@example.com"))
		})

		It("should report every offending row, not just the first", func() {
			csv := "name,description,parent_name,head_email\n" +
				",missing name,,\n" +
				"Backend,,Nowhere,\n"

			job, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Errors).To(HaveLen(2))
			Expect(job.Errors[0].Row).To(Equal(2))
			Expect(job.Errors[1].Row).To(Equal(3))
		})

		It("should reject a duplicate name against existing data", func() {
			repo.deptNames["Engineering"] = true
			csv := "name,description,parent_name,head_email\n" +
				"Engineering,,,\n"

			job, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusFailed))
		})

		It("should reject callers below ORG_ADMIN", func() {
			csv := "name,description,parent_name,head_email\nEngineering,,,\n"

			_, err := service.ImportDepartments(access.Scope{UserID: 20, Role: access.RoleUnitAdmin}, strings.NewReader(csv))

			Expect(err).To(MatchError(internal.ErrAccessDenied))
		})

		It("should reject a wrong header", func() {
			csv := "title,description,parent_name,head_email\nEngineering,,,\n"

			_, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(MatchError(importer.ErrBadHeader))
		})

		It("should reject a file with no data rows", func() {
			csv := "name,description,parent_name,head_email\n"

			_, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(MatchError(importer.ErrEmptyFile))
		})

		It("should mark the job failed when the storage write fails", func() {
			repo.importError = errors.New("connection lost")
			csv := "name,description,parent_name,head_email\nEngineering,,,\n"

			job, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusFailed))
			Expect(repo.departments).To(BeEmpty())
		})
	})

	Describe("ImportUsers", func() {
		BeforeEach(func() {
			repo.deptNames["Engineering"] = true
		})

		It("should hash passwords and allow managers defined earlier in the file", func() {
			csv := "email,name,password,role,department_name,manager_email\n" +
				"lead@example.com,Lead,password123,UNIT_ADMIN,Engineering,\n" +
				"dev@example.com,Dev,password123,MEMBER,Engineering,lead@example.com\n"

			job, err := service.ImportUsers(orgAdmin, strings.NewReader(csv))

			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusCompleted))
			Expect(repo.users).To(HaveLen(2))
			Expect(repo.users[0].PasswordHash).NotTo(Equal("password123"))
			Expect(bcrypt.CompareHashAndPassword([]byte(repo.users[0].PasswordHash), []byte("password123"))).To(Succeed())
		})

		It("should reject an unknown role", func() {
			csv := "email,name,password,role,department_name,manager_email\n" +
				"dev@example.com,Dev,password123,SUPERUSER,Engineering,\n"

			job, err := service.ImportUsers(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Errors[0].Message).To(ContainSubstring("SUPERUSER"))
		})

		It("should reject a user managing themselves", func() {
			csv := "email,name,password,role,department_name,manager_email\n" +
				"dev@example.com,Dev,password123,MEMBER,,dev@example.com\n"

			job, err := service.ImportUsers(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Errors[0].Message).To(ContainSubstring("own manager"))
		})

		It("should reject an email already registered", func() {
			repo.userEmails["dev@example.com"] = true
			csv := "email,name,password,role,department_name,manager_email\n" +
				"dev@example.com,Dev,password123,MEMBER,,\n"

			_, err := service.ImportUsers(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(repo.users).To(BeEmpty())
		})
	})

	Describe("ImportFacilities", func() {
		BeforeEach(func() {
			repo.deptNames["Engineering"] = true
		})

		It("should commit a clean batch and default missing statuses", func() {
			csv := "name,type,capacity,location,status,department_name\n" +
				"Meeting Room A,meeting_room,8,2nd floor,,Engineering\n"

			job, err := service.ImportFacilities(orgAdmin, strings.NewReader(csv))

			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusCompleted))
			Expect(repo.facilities).To(HaveLen(1))
			Expect(repo.facilities[0].Status).To(Equal("available"))
			Expect(repo.facilities[0].Capacity).To(Equal(8))
		})

		It("should reject a non-numeric capacity", func() {
			csv := "name,type,capacity,location,status,department_name\n" +
				"Meeting Room A,meeting_room,lots,2nd floor,,Engineering\n"

			job, err := service.ImportFacilities(orgAdmin, strings.NewReader(csv))

			Expect(err).To(HaveOccurred())
			Expect(job.Errors[0].Message).To(ContainSubstring("capacity"))
		})
	})

	Describe("GetJob", func() {
		It("should return a persisted job with decoded row errors", func() {
			csv := "name,description,parent_name,head_email\n" +
				"Backend,,Nowhere,\n"
			failed, err := service.ImportDepartments(orgAdmin, strings.NewReader(csv))
			Expect(err).To(HaveOccurred())

			job, err := service.GetJob(orgAdmin, failed.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(importer.StatusFailed))
			Expect(job.Errors).To(HaveLen(1))
		})

		It("should return the not-found error for an unknown id", func() {
			_, err := service.GetJob(orgAdmin, "no-such-job")

			Expect(err).To(MatchError(importer.ErrJobNotFound))
		})
	})
})
