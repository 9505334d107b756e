package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/org-management/internal/core/hierarchy"
	"github.com/frahmantamala/org-management/internal/department"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll() ([]*department.Department, error) {
	var departments []*department.Department
	if err := r.db.Order("id").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

func (r *Repository) GetByID(id int64) (*department.Department, error) {
	var d department.Department
	if err := r.db.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department %d: %w", id, err)
	}
	return &d, nil
}

func (r *Repository) GetByName(name string) (*department.Department, error) {
	var d department.Department
	if err := r.db.Where("name = ?", name).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department by name: %w", err)
	}
	return &d, nil
}

func (r *Repository) Create(d *department.Department) error {
	if err := r.db.Create(d).Error; err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update writes the non-structural columns. Parent changes go through
// UpdateAndReparent so they cannot bypass the locked cycle check.
func (r *Repository) Update(d *department.Department) error {
	result := r.db.Model(&department.Department{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"name":         d.Name,
			"description":  d.Description,
			"head_user_id": d.HeadUserID,
		})
	if result.Error != nil {
		return fmt.Errorf("update department %d: %w", d.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return department.ErrDepartmentNotFound
	}
	return nil
}

// UpdateAndReparent re-validates the cycle invariant against a locked
// snapshot of the tree, then writes the new parent together with the rest of
// the update in the same transaction. The service already checked an
// unlocked snapshot, but two concurrent moves could each pass that check and
// jointly form a cycle, and splitting the parent write from the column write
// would leave a half-applied update behind a failed request.
func (r *Repository) UpdateAndReparent(d *department.Department, newParentID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&department.Department{})
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var rows []struct {
			ID       int64
			ParentID *int64
		}
		if err := query.Select("id", "parent_id").Find(&rows).Error; err != nil {
			return fmt.Errorf("lock department tree: %w", err)
		}

		parents := make(map[int64]*int64, len(rows))
		for _, row := range rows {
			parents[row.ID] = row.ParentID
		}

		if _, ok := parents[d.ID]; !ok {
			return department.ErrDepartmentNotFound
		}
		if hierarchy.NewForest(parents).WouldCycle(d.ID, newParentID) {
			return hierarchy.ErrCycleDetected
		}

		return tx.Model(&department.Department{}).
			Where("id = ?", d.ID).
			Updates(map[string]interface{}{
				"name":         d.Name,
				"description":  d.Description,
				"parent_id":    newParentID,
				"head_user_id": d.HeadUserID,
			}).Error
	})
}

func (r *Repository) Delete(id int64) error {
	result := r.db.Delete(&department.Department{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete department %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return department.ErrDepartmentNotFound
	}
	return nil
}

// DeleteAndReparent removes the department and moves its children, members
// and resources up to its former parent in one transaction.
func (r *Repository) DeleteAndReparent(id int64, newParentID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&department.Department{}).
			Where("parent_id = ?", id).
			Update("parent_id", newParentID).Error; err != nil {
			return fmt.Errorf("reparent children of department %d: %w", id, err)
		}

		if err := tx.Table("users").
			Where("department_id = ?", id).
			Update("department_id", newParentID).Error; err != nil {
			return fmt.Errorf("reparent users of department %d: %w", id, err)
		}

		if err := tx.Table("resources").
			Where("department_id = ?", id).
			Update("department_id", newParentID).Error; err != nil {
			return fmt.Errorf("reparent resources of department %d: %w", id, err)
		}

		result := tx.Delete(&department.Department{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete department %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return department.ErrDepartmentNotFound
		}
		return nil
	})
}

func (r *Repository) ParentMap() (map[int64]*int64, error) {
	var rows []struct {
		ID       int64
		ParentID *int64
	}
	if err := r.db.Model(&department.Department{}).Select("id", "parent_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load department parent map: %w", err)
	}

	parents := make(map[int64]*int64, len(rows))
	for _, row := range rows {
		parents[row.ID] = row.ParentID
	}
	return parents, nil
}

func (r *Repository) CountUsers(departmentID int64) (int64, error) {
	var count int64
	if err := r.db.Table("users").Where("department_id = ?", departmentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users in department %d: %w", departmentID, err)
	}
	return count, nil
}

func (r *Repository) CountResources(departmentID int64) (int64, error) {
	var count int64
	if err := r.db.Table("resources").Where("department_id = ?", departmentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count resources in department %d: %w", departmentID, err)
	}
	return count, nil
}

func (r *Repository) UserExists(userID int64) (bool, error) {
	var count int64
	if err := r.db.Table("users").Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return count > 0, nil
}
