package events

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types published by the mutating services. The admin module
// subscribes to all of them and persists an audit log entry per event.
const (
	EventDepartmentCreated  = "department.created"
	EventDepartmentUpdated  = "department.updated"
	EventDepartmentDeleted  = "department.deleted"
	EventDepartmentReparent = "department.reparented"
	EventUserCreated        = "user.created"
	EventUserUpdated        = "user.updated"
	EventUserDeleted        = "user.deleted"
	EventUserManagerChanged = "user.manager_changed"
	EventResourceCreated    = "resource.created"
	EventResourceUpdated    = "resource.updated"
	EventResourceDeleted    = "resource.deleted"
	EventResourceAssigned   = "resource.assigned"
	EventResourceReleased   = "resource.released"
	EventImportCompleted    = "import.completed"
	EventImportFailed       = "import.failed"
)

// AuditEventTypes lists every event type the audit trail records.
func AuditEventTypes() []string {
	return []string{
		EventDepartmentCreated,
		EventDepartmentUpdated,
		EventDepartmentDeleted,
		EventDepartmentReparent,
		EventUserCreated,
		EventUserUpdated,
		EventUserDeleted,
		EventUserManagerChanged,
		EventResourceCreated,
		EventResourceUpdated,
		EventResourceDeleted,
		EventResourceAssigned,
		EventResourceReleased,
		EventImportCompleted,
		EventImportFailed,
	}
}

// NewAuditEvent builds an audit event carrying the acting user and an
// entity payload.
func NewAuditEvent(eventType string, actorID int64, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["actor_id"] = actorID
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
