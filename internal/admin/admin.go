package admin

import (
	"time"

	"github.com/frahmantamala/org-management/internal"
)

// DashboardStats is the entity-count summary shown to org-wide admins.
type DashboardStats struct {
	Departments int64 `json:"departments"`
	Users       int64 `json:"users"`
	ActiveUsers int64 `json:"active_users"`
	Resources   int64 `json:"resources"`
	Facilities  int64 `json:"facilities"`
	Teams       int64 `json:"teams"`
	Projects    int64 `json:"projects"`
}

// AuditLog is one persisted audit trail entry, written by the event bus
// subscriber for every mutating operation.
type AuditLog struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	EventID   string    `json:"event_id" gorm:"column:event_id"`
	EventType string    `json:"event_type" gorm:"column:event_type;not null"`
	ActorID   int64     `json:"actor_id" gorm:"column:actor_id"`
	Payload   string    `json:"payload" gorm:"column:payload"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

// TableName returns the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

var ErrAuditLogUnavailable = internal.NewInternalError("failed to read audit trail", nil)
