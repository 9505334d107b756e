package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/resource"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll() ([]*resource.Resource, error) {
	var resources []*resource.Resource
	if err := r.db.Order("id").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

func (r *Repository) GetByID(id int64) (*resource.Resource, error) {
	var res resource.Resource
	if err := r.db.First(&res, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resource.ErrResourceNotFound
		}
		return nil, fmt.Errorf("get resource %d: %w", id, err)
	}
	return &res, nil
}

func (r *Repository) Create(res *resource.Resource) error {
	if err := r.db.Create(res).Error; err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *Repository) Update(res *resource.Resource) error {
	result := r.db.Model(&resource.Resource{}).
		Where("id = ?", res.ID).
		Updates(map[string]interface{}{
			"name":             res.Name,
			"resource_type":    res.Type,
			"status":           res.Status,
			"department_id":    res.DepartmentID,
			"assigned_user_id": res.AssignedUserID,
		})
	if result.Error != nil {
		return fmt.Errorf("update resource %d: %w", res.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return resource.ErrResourceNotFound
	}
	return nil
}

func (r *Repository) Delete(id int64) error {
	result := r.db.Delete(&resource.Resource{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete resource %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return resource.ErrResourceNotFound
	}
	return nil
}

func (r *Repository) GetAllFacilities() ([]*resource.Facility, error) {
	var facilities []*resource.Facility
	if err := r.db.Order("id").Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return facilities, nil
}

func (r *Repository) GetFacilityByID(id int64) (*resource.Facility, error) {
	var f resource.Facility
	if err := r.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resource.ErrFacilityNotFound
		}
		return nil, fmt.Errorf("get facility %d: %w", id, err)
	}
	return &f, nil
}

func (r *Repository) CreateFacility(f *resource.Facility) error {
	if err := r.db.Create(f).Error; err != nil {
		return fmt.Errorf("create facility: %w", err)
	}
	return nil
}

func (r *Repository) UpdateFacility(f *resource.Facility) error {
	result := r.db.Model(&resource.Facility{}).
		Where("id = ?", f.ID).
		Updates(map[string]interface{}{
			"name":          f.Name,
			"facility_type": f.Type,
			"capacity":      f.Capacity,
			"location":      f.Location,
			"status":        f.Status,
			"department_id": f.DepartmentID,
		})
	if result.Error != nil {
		return fmt.Errorf("update facility %d: %w", f.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return resource.ErrFacilityNotFound
	}
	return nil
}

func (r *Repository) DeleteFacility(id int64) error {
	result := r.db.Delete(&resource.Facility{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete facility %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return resource.ErrFacilityNotFound
	}
	return nil
}

func (r *Repository) UserActive(userID int64) (bool, error) {
	var count int64
	if err := r.db.Table("users").Where("id = ? AND is_active = ?", userID, true).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return count > 0, nil
}

func (r *Repository) DepartmentExists(id int64) (bool, error) {
	var count int64
	if err := r.db.Table("departments").Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check department %d: %w", id, err)
	}
	return count > 0, nil
}
