package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/access"
)

// DirectoryRepository feeds the visibility engine with whole-column
// adjacency snapshots.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) DepartmentParents() (map[int64]*int64, error) {
	var rows []struct {
		ID       int64
		ParentID *int64
	}
	if err := r.db.Table("departments").Select("id", "parent_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load department parents: %w", err)
	}

	parents := make(map[int64]*int64, len(rows))
	for _, row := range rows {
		parents[row.ID] = row.ParentID
	}
	return parents, nil
}

func (r *DirectoryRepository) UserDepartments() (map[int64]*int64, error) {
	var rows []struct {
		ID           int64
		DepartmentID *int64
	}
	if err := r.db.Table("users").Select("id", "department_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load user departments: %w", err)
	}

	depts := make(map[int64]*int64, len(rows))
	for _, row := range rows {
		depts[row.ID] = row.DepartmentID
	}
	return depts, nil
}

func (r *DirectoryRepository) ResourceOwners() (map[int64]access.ResourceOwner, error) {
	var rows []struct {
		ID             int64
		DepartmentID   *int64
		AssignedUserID *int64
	}
	if err := r.db.Table("resources").Select("id", "department_id", "assigned_user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load resource owners: %w", err)
	}

	owners := make(map[int64]access.ResourceOwner, len(rows))
	for _, row := range rows {
		owners[row.ID] = access.ResourceOwner{
			DepartmentID:   row.DepartmentID,
			AssignedUserID: row.AssignedUserID,
		}
	}
	return owners, nil
}
