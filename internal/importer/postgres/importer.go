package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/department"
	"github.com/frahmantamala/org-management/internal/importer"
	"github.com/frahmantamala/org-management/internal/resource"
	"github.com/frahmantamala/org-management/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateJob(job *importer.ImportJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

func (r *Repository) UpdateJob(job *importer.ImportJob) error {
	result := r.db.Model(&importer.ImportJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":        job.Status,
			"total_rows":    job.TotalRows,
			"imported_rows": job.ImportedRows,
			"row_errors":    job.ErrorsJSON,
		})
	if result.Error != nil {
		return fmt.Errorf("update import job %s: %w", job.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return importer.ErrJobNotFound
	}
	return nil
}

func (r *Repository) GetJob(id string) (*importer.ImportJob, error) {
	var job importer.ImportJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, importer.ErrJobNotFound
		}
		return nil, fmt.Errorf("get import job %s: %w", id, err)
	}
	return &job, nil
}

func (r *Repository) DepartmentNameExists(name string) (bool, error) {
	var count int64
	if err := r.db.Model(&department.Department{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check department name: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) UserEmailExists(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&user.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return count > 0, nil
}

// ImportDepartments writes the whole batch in one transaction, resolving
// parent and head references against both preexisting rows and rows
// inserted earlier in the same batch. Any failure rolls everything back.
func (r *Repository) ImportDepartments(rows []importer.DepartmentRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			d := &department.Department{
				Name:        row.Name,
				Description: row.Description,
			}

			if row.ParentName != "" {
				var parent department.Department
				if err := tx.Where("name = ?", row.ParentName).First(&parent).Error; err != nil {
					return fmt.Errorf("resolve parent %q: %w", row.ParentName, err)
				}
				d.ParentID = &parent.ID
			}
			if row.HeadEmail != "" {
				var head user.User
				if err := tx.Where("email = ?", row.HeadEmail).First(&head).Error; err != nil {
					return fmt.Errorf("resolve head %q: %w", row.HeadEmail, err)
				}
				d.HeadUserID = &head.ID
			}

			if err := tx.Create(d).Error; err != nil {
				return fmt.Errorf("import department %q: %w", row.Name, err)
			}
		}
		return nil
	})
}

// ImportUsers writes the whole batch in one transaction. Managers may point
// at users inserted earlier in the same batch.
func (r *Repository) ImportUsers(rows []importer.UserRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			u := &user.User{
				Email:        row.Email,
				Name:         row.Name,
				PasswordHash: row.PasswordHash,
				Role:         access.Role(row.Role),
				IsActive:     true,
			}

			if row.DepartmentName != "" {
				var d department.Department
				if err := tx.Where("name = ?", row.DepartmentName).First(&d).Error; err != nil {
					return fmt.Errorf("resolve department %q: %w", row.DepartmentName, err)
				}
				u.DepartmentID = &d.ID
			}
			if row.ManagerEmail != "" {
				var m user.User
				if err := tx.Where("email = ?", row.ManagerEmail).First(&m).Error; err != nil {
					return fmt.Errorf("resolve manager %q: %w", row.ManagerEmail, err)
				}
				u.ManagerID = &m.ID
			}

			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("import user %q: %w", row.Email, err)
			}
		}
		return nil
	})
}

// ImportFacilities writes the whole batch in one transaction.
func (r *Repository) ImportFacilities(rows []importer.FacilityRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			f := &resource.Facility{
				Name:     row.Name,
				Type:     row.Type,
				Capacity: row.Capacity,
				Location: row.Location,
				Status:   row.Status,
			}

			if row.DepartmentName != "" {
				var d department.Department
				if err := tx.Where("name = ?", row.DepartmentName).First(&d).Error; err != nil {
					return fmt.Errorf("resolve department %q: %w", row.DepartmentName, err)
				}
				f.DepartmentID = &d.ID
			}

			if err := tx.Create(f).Error; err != nil {
				return fmt.Errorf("import facility %q: %w", row.Name, err)
			}
		}
		return nil
	})
}
