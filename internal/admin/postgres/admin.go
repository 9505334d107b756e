package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/admin"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountStats() (*admin.DashboardStats, error) {
	stats := &admin.DashboardStats{}

	counts := []struct {
		table string
		dest  *int64
		where string
	}{
		{"departments", &stats.Departments, ""},
		{"users", &stats.Users, ""},
		{"users", &stats.ActiveUsers, "is_active = true"},
		{"resources", &stats.Resources, ""},
		{"facilities", &stats.Facilities, ""},
		{"teams", &stats.Teams, ""},
		{"projects", &stats.Projects, ""},
	}

	for _, c := range counts {
		query := r.db.Table(c.table)
		if c.where != "" {
			query = query.Where(c.where)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return stats, nil
}

func (r *Repository) CreateAuditLog(entry *admin.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *Repository) ListAuditLogs(limit, offset int) ([]*admin.AuditLog, error) {
	var logs []*admin.AuditLog
	if err := r.db.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
