package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/events"
	"github.com/frahmantamala/org-management/internal/resource"
)

// Repository defines the data access methods for imports. The Import*
// methods commit a whole batch in one transaction; name and email
// references inside a batch resolve against rows inserted earlier in the
// same transaction.
type Repository interface {
	CreateJob(job *ImportJob) error
	UpdateJob(job *ImportJob) error
	GetJob(id string) (*ImportJob, error)

	DepartmentNameExists(name string) (bool, error)
	UserEmailExists(email string) (bool, error)

	ImportDepartments(rows []DepartmentRow) error
	ImportUsers(rows []UserRow) error
	ImportFacilities(rows []FacilityRow) error
}

type Service struct {
	repo       Repository
	bus        *events.EventBus
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bus:        bus,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) publish(eventType string, actorID int64, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), events.NewAuditEvent(eventType, actorID, data)); err != nil {
		s.logger.Warn("failed to publish audit event", "event_type", eventType, "error", err)
	}
}

// ImportDepartments ingests a CSV with columns
// name,description,parent_name,head_email. A row may reference a parent
// defined earlier in the same file. Any invalid row rejects the whole batch.
func (s *Service) ImportDepartments(scope access.Scope, r io.Reader) (*ImportJob, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}

	records, err := readCSV(r, []string{"name", "description", "parent_name", "head_email"})
	if err != nil {
		return nil, err
	}

	job := s.newJob(KindDepartments, scope.UserID, len(records))
	if err := s.repo.CreateJob(job); err != nil {
		return nil, internal.NewInternalError("failed to create import job", err)
	}

	rows := make([]DepartmentRow, 0, len(records))
	var rowErrors []RowError
	seenNames := make(map[string]int)

	for i, rec := range records {
		rowNum := i + 2 // header is row 1
		row := DepartmentRow{
			Name:        strings.TrimSpace(rec[0]),
			Description: strings.TrimSpace(rec[1]),
			ParentName:  strings.TrimSpace(rec[2]),
			HeadEmail:   strings.TrimSpace(rec[3]),
		}

		if row.Name == "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "name is required"})
			continue
		}
		if prev, dup := seenNames[row.Name]; dup {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("duplicate name %q, first used on row %d", row.Name, prev)})
			continue
		}
		seenNames[row.Name] = rowNum

		exists, err := s.repo.DepartmentNameExists(row.Name)
		if err != nil {
			return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
		}
		if exists {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("department %q already exists", row.Name)})
			continue
		}

		if row.ParentName != "" {
			if row.ParentName == row.Name {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "department cannot be its own parent"})
				continue
			}
			if _, inBatch := seenNames[row.ParentName]; !inBatch {
				parentExists, err := s.repo.DepartmentNameExists(row.ParentName)
				if err != nil {
					return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
				}
				if !parentExists {
					rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown parent department %q", row.ParentName)})
					continue
				}
			}
		}

		if row.HeadEmail != "" {
			headExists, err := s.repo.UserEmailExists(row.HeadEmail)
			if err != nil {
				return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
			}
			if !headExists {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown head user %q", row.HeadEmail)})
				continue
			}
		}

		rows = append(rows, row)
	}

	return s.commit(job, len(rows), rowErrors, func() error {
		return s.repo.ImportDepartments(rows)
	})
}

// ImportUsers ingests a CSV with columns
// email,name,password,role,department_name,manager_email. Managers may
// point at users defined earlier in the same file.
func (s *Service) ImportUsers(scope access.Scope, r io.Reader) (*ImportJob, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}

	records, err := readCSV(r, []string{"email", "name", "password", "role", "department_name", "manager_email"})
	if err != nil {
		return nil, err
	}

	job := s.newJob(KindUsers, scope.UserID, len(records))
	if err := s.repo.CreateJob(job); err != nil {
		return nil, internal.NewInternalError("failed to create import job", err)
	}

	rows := make([]UserRow, 0, len(records))
	var rowErrors []RowError
	seenEmails := make(map[string]int)

	for i, rec := range records {
		rowNum := i + 2
		row := UserRow{
			Email:          strings.TrimSpace(rec[0]),
			Name:           strings.TrimSpace(rec[1]),
			Role:           strings.TrimSpace(rec[3]),
			DepartmentName: strings.TrimSpace(rec[4]),
			ManagerEmail:   strings.TrimSpace(rec[5]),
		}
		password := rec[2]

		if row.Email == "" || !strings.Contains(row.Email, "@") {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "a valid email is required"})
			continue
		}
		if prev, dup := seenEmails[row.Email]; dup {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("duplicate email %q, first used on row %d", row.Email, prev)})
			continue
		}
		seenEmails[row.Email] = rowNum

		if row.Name == "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "name is required"})
			continue
		}
		if len(password) < 8 {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "password must be at least 8 characters"})
			continue
		}
		if !access.Role(row.Role).Valid() {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown role %q", row.Role)})
			continue
		}

		exists, err := s.repo.UserEmailExists(row.Email)
		if err != nil {
			return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
		}
		if exists {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("email %q already registered", row.Email)})
			continue
		}

		if row.DepartmentName != "" {
			deptExists, err := s.repo.DepartmentNameExists(row.DepartmentName)
			if err != nil {
				return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
			}
			if !deptExists {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown department %q", row.DepartmentName)})
				continue
			}
		}

		if row.ManagerEmail != "" {
			if row.ManagerEmail == row.Email {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "user cannot be their own manager"})
				continue
			}
			if _, inBatch := seenEmails[row.ManagerEmail]; !inBatch {
				managerExists, err := s.repo.UserEmailExists(row.ManagerEmail)
				if err != nil {
					return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
				}
				if !managerExists {
					rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown manager %q", row.ManagerEmail)})
					continue
				}
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return nil, s.failJob(job, internal.NewInternalError("failed to hash password", err))
		}
		row.PasswordHash = string(hash)

		rows = append(rows, row)
	}

	return s.commit(job, len(rows), rowErrors, func() error {
		return s.repo.ImportUsers(rows)
	})
}

// ImportFacilities ingests a CSV with columns
// name,type,capacity,location,status,department_name.
func (s *Service) ImportFacilities(scope access.Scope, r io.Reader) (*ImportJob, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}

	records, err := readCSV(r, []string{"name", "type", "capacity", "location", "status", "department_name"})
	if err != nil {
		return nil, err
	}

	job := s.newJob(KindFacilities, scope.UserID, len(records))
	if err := s.repo.CreateJob(job); err != nil {
		return nil, internal.NewInternalError("failed to create import job", err)
	}

	rows := make([]FacilityRow, 0, len(records))
	var rowErrors []RowError

	for i, rec := range records {
		rowNum := i + 2
		row := FacilityRow{
			Name:           strings.TrimSpace(rec[0]),
			Type:           strings.TrimSpace(rec[1]),
			Location:       strings.TrimSpace(rec[3]),
			Status:         strings.TrimSpace(rec[4]),
			DepartmentName: strings.TrimSpace(rec[5]),
		}

		if row.Name == "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "name is required"})
			continue
		}

		capacity := strings.TrimSpace(rec[2])
		if capacity != "" {
			n, err := strconv.Atoi(capacity)
			if err != nil || n < 0 {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("invalid capacity %q", capacity)})
				continue
			}
			row.Capacity = n
		}

		if row.Status == "" {
			row.Status = resource.StatusAvailable
		} else if !resource.ValidStatus(row.Status) {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown status %q", row.Status)})
			continue
		}

		if row.DepartmentName != "" {
			deptExists, err := s.repo.DepartmentNameExists(row.DepartmentName)
			if err != nil {
				return nil, s.failJob(job, internal.NewInternalError("failed to validate import", err))
			}
			if !deptExists {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown department %q", row.DepartmentName)})
				continue
			}
		}

		rows = append(rows, row)
	}

	return s.commit(job, len(rows), rowErrors, func() error {
		return s.repo.ImportFacilities(rows)
	})
}

// GetJob returns a persisted job record. Import visibility matches the gate
// on the upload endpoints.
func (s *Service) GetJob(scope access.Scope, id string) (*ImportJob, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}
	job, err := s.repo.GetJob(id)
	if err != nil {
		return nil, ErrJobNotFound
	}
	job.DecodeErrors()
	return job, nil
}

func (s *Service) newJob(kind string, actorID int64, totalRows int) *ImportJob {
	return &ImportJob{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		TotalRows: totalRows,
		CreatedBy: actorID,
	}
}

// commit finishes a job: any row error fails the whole batch with zero rows
// written; otherwise all rows land in one transaction.
func (s *Service) commit(job *ImportJob, validRows int, rowErrors []RowError, write func() error) (*ImportJob, error) {
	if len(rowErrors) > 0 {
		job.Status = StatusFailed
		job.Errors = rowErrors
		job.EncodeErrors()
		if err := s.repo.UpdateJob(job); err != nil {
			s.logger.Error("failed to persist import job", "job_id", job.ID, "error", err)
		}
		s.logger.Warn("import rejected", "job_id", job.ID, "kind", job.Kind, "row_errors", len(rowErrors))
		s.publish(events.EventImportFailed, job.CreatedBy, map[string]interface{}{
			"job_id":     job.ID,
			"kind":       job.Kind,
			"row_errors": len(rowErrors),
		})
		return job, NewImportError(rowErrors)
	}

	if err := write(); err != nil {
		job.Status = StatusFailed
		job.Errors = []RowError{{Row: 0, Message: "storage failure, no rows were committed"}}
		job.EncodeErrors()
		if updateErr := s.repo.UpdateJob(job); updateErr != nil {
			s.logger.Error("failed to persist import job", "job_id", job.ID, "error", updateErr)
		}
		s.logger.Error("import commit failed", "job_id", job.ID, "error", err)
		return job, internal.NewInternalError("failed to commit import", err)
	}

	job.Status = StatusCompleted
	job.ImportedRows = validRows
	job.Errors = []RowError{}
	if err := s.repo.UpdateJob(job); err != nil {
		s.logger.Error("failed to persist import job", "job_id", job.ID, "error", err)
	}
	s.logger.Info("import completed", "job_id", job.ID, "kind", job.Kind, "rows", validRows)
	s.publish(events.EventImportCompleted, job.CreatedBy, map[string]interface{}{
		"job_id": job.ID,
		"kind":   job.Kind,
		"rows":   validRows,
	})
	return job, nil
}

func (s *Service) failJob(job *ImportJob, cause *internal.AppError) error {
	job.Status = StatusFailed
	if err := s.repo.UpdateJob(job); err != nil {
		s.logger.Error("failed to persist import job", "job_id", job.ID, "error", err)
	}
	return cause
}

// readCSV parses the upload, verifies the header and returns the data rows.
func readCSV(r io.Reader, header []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, internal.NewValidationError(fmt.Sprintf("malformed csv: %v", err), internal.ErrCodeImportFailed)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	got := records[0]
	for i, col := range header {
		if strings.TrimSpace(strings.ToLower(got[i])) != col {
			return nil, ErrBadHeader
		}
	}

	if len(records) == 1 {
		return nil, ErrEmptyFile
	}
	return records[1:], nil
}
