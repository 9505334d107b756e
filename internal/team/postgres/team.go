package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/team"
)

type teamMember struct {
	TeamID int64 `gorm:"primaryKey;column:team_id"`
	UserID int64 `gorm:"primaryKey;column:user_id"`
}

func (teamMember) TableName() string { return "team_members" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll() ([]*team.Team, error) {
	var teams []*team.Team
	if err := r.db.Order("id").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (r *Repository) GetByID(id int64) (*team.Team, error) {
	var t team.Team
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, team.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team %d: %w", id, err)
	}
	return &t, nil
}

func (r *Repository) Create(t *team.Team) error {
	if err := r.db.Create(t).Error; err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (r *Repository) Update(t *team.Team) error {
	result := r.db.Model(&team.Team{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"leader_id":   t.LeaderID,
		})
	if result.Error != nil {
		return fmt.Errorf("update team %d: %w", t.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return team.ErrTeamNotFound
	}
	return nil
}

// Delete removes the team, its membership rows and its projects together.
func (r *Repository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&teamMember{}).Error; err != nil {
			return fmt.Errorf("delete members of team %d: %w", id, err)
		}
		if err := tx.Where("team_id = ?", id).Delete(&team.Project{}).Error; err != nil {
			return fmt.Errorf("delete projects of team %d: %w", id, err)
		}
		result := tx.Delete(&team.Team{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete team %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return team.ErrTeamNotFound
		}
		return nil
	})
}

func (r *Repository) MemberIDs(teamID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.Model(&teamMember{}).
		Where("team_id = ?", teamID).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list members of team %d: %w", teamID, err)
	}
	return ids, nil
}

func (r *Repository) AddMember(teamID, userID int64) error {
	if err := r.db.Create(&teamMember{TeamID: teamID, UserID: userID}).Error; err != nil {
		return fmt.Errorf("add member %d to team %d: %w", userID, teamID, err)
	}
	return nil
}

func (r *Repository) RemoveMember(teamID, userID int64) error {
	result := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&teamMember{})
	if result.Error != nil {
		return fmt.Errorf("remove member %d from team %d: %w", userID, teamID, result.Error)
	}
	return nil
}

func (r *Repository) IsMember(teamID, userID int64) (bool, error) {
	var count int64
	if err := r.db.Model(&teamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) GetProjects(teamID int64) ([]*team.Project, error) {
	var projects []*team.Project
	if err := r.db.Where("team_id = ?", teamID).Order("id").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects of team %d: %w", teamID, err)
	}
	return projects, nil
}

func (r *Repository) GetProjectByID(id int64) (*team.Project, error) {
	var p team.Project
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, team.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}

func (r *Repository) CreateProject(p *team.Project) error {
	if err := r.db.Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProject(p *team.Project) error {
	result := r.db.Model(&team.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"status":      p.Status,
			"start_date":  p.StartDate,
			"end_date":    p.EndDate,
		})
	if result.Error != nil {
		return fmt.Errorf("update project %d: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return team.ErrProjectNotFound
	}
	return nil
}

func (r *Repository) DeleteProject(id int64) error {
	result := r.db.Delete(&team.Project{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete project %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return team.ErrProjectNotFound
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
