package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/org-management/internal/core/hierarchy"
	"github.com/frahmantamala/org-management/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll() ([]*user.User, error) {
	var users []*user.User
	if err := r.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *Repository) GetByID(id int64) (*user.User, error) {
	var u user.User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (r *Repository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *Repository) Create(u *user.User) error {
	if err := r.db.Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) Update(u *user.User) error {
	result := r.db.Model(&user.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"email":         u.Email,
			"name":          u.Name,
			"role":          u.Role,
			"department_id": u.DepartmentID,
			"is_active":     u.IsActive,
		})
	if result.Error != nil {
		return fmt.Errorf("update user %d: %w", u.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// SetManager re-validates the reporting cycle invariant against a locked
// snapshot of the forest before writing, mirroring the department reparent.
func (r *Repository) SetManager(id int64, managerID *int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&user.User{})
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var rows []struct {
			ID        int64
			ManagerID *int64
		}
		if err := query.Select("id", "manager_id").Find(&rows).Error; err != nil {
			return fmt.Errorf("lock reporting forest: %w", err)
		}

		managers := make(map[int64]*int64, len(rows))
		for _, row := range rows {
			managers[row.ID] = row.ManagerID
		}

		if _, ok := managers[id]; !ok {
			return user.ErrUserNotFound
		}
		if hierarchy.NewForest(managers).WouldCycle(id, managerID) {
			return hierarchy.ErrCycleDetected
		}

		return tx.Model(&user.User{}).
			Where("id = ?", id).
			Update("manager_id", managerID).Error
	})
}

// Delete removes the user in one transaction: their reports move up to the
// deleted user's own manager, their assigned resources are released, and
// departments headed by them lose the head reference.
func (r *Repository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var u user.User
		if err := tx.First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return user.ErrUserNotFound
			}
			return fmt.Errorf("get user %d: %w", id, err)
		}

		if err := tx.Model(&user.User{}).
			Where("manager_id = ?", id).
			Update("manager_id", u.ManagerID).Error; err != nil {
			return fmt.Errorf("reattach reports of user %d: %w", id, err)
		}

		if err := tx.Table("resources").
			Where("assigned_user_id = ?", id).
			Updates(map[string]interface{}{
				"assigned_user_id": nil,
				"status":           "available",
			}).Error; err != nil {
			return fmt.Errorf("release resources of user %d: %w", id, err)
		}

		if err := tx.Table("departments").
			Where("head_user_id = ?", id).
			Update("head_user_id", nil).Error; err != nil {
			return fmt.Errorf("clear department head %d: %w", id, err)
		}

		if err := tx.Delete(&user.User{}, id).Error; err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		return nil
	})
}

func (r *Repository) ManagerMap() (map[int64]*int64, error) {
	var rows []struct {
		ID        int64
		ManagerID *int64
	}
	if err := r.db.Model(&user.User{}).Select("id", "manager_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reporting forest: %w", err)
	}

	managers := make(map[int64]*int64, len(rows))
	for _, row := range rows {
		managers[row.ID] = row.ManagerID
	}
	return managers, nil
}

func (r *Repository) DepartmentExists(id int64) (bool, error) {
	var count int64
	if err := r.db.Table("departments").Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check department %d: %w", id, err)
	}
	return count > 0, nil
}

func (r *Repository) DepartmentHead(departmentID int64) (*user.User, error) {
	var u user.User
	err := r.db.
		Joins("JOIN departments ON departments.head_user_id = users.id").
		Where("departments.id = ?", departmentID).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get head of department %d: %w", departmentID, err)
	}
	return &u, nil
}
