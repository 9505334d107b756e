package admin

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/core/events"
)

// Repository defines the data access methods for the admin module.
type Repository interface {
	CountStats() (*DashboardStats, error)
	CreateAuditLog(entry *AuditLog) error
	ListAuditLogs(limit, offset int) ([]*AuditLog, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SubscribeAuditTrail wires the audit persister onto every mutating event
// type. Call once at startup, before the server accepts traffic.
func (s *Service) SubscribeAuditTrail(bus *events.EventBus) {
	for _, eventType := range events.AuditEventTypes() {
		bus.Subscribe(eventType, s.persistAuditEvent)
	}
}

func (s *Service) persistAuditEvent(ctx context.Context, event events.Event) error {
	entry := &AuditLog{
		EventID:   event.EventID(),
		EventType: event.EventType(),
		CreatedAt: event.OccurredAt(),
	}

	if data, ok := event.Payload().(map[string]interface{}); ok {
		if actor, ok := data["actor_id"].(int64); ok {
			entry.ActorID = actor
		}
		if b, err := json.Marshal(data); err == nil {
			entry.Payload = string(b)
		}
	}

	if err := s.repo.CreateAuditLog(entry); err != nil {
		s.logger.Error("failed to persist audit log", "event_type", entry.EventType, "error", err)
		return err
	}
	return nil
}

// GetDashboard returns org-wide entity counts. ORG_ADMIN or better only.
func (s *Service) GetDashboard(scope access.Scope) (*DashboardStats, error) {
	if !scope.Role.AtLeast(access.RoleOrgAdmin) {
		return nil, internal.ErrAccessDenied
	}

	stats, err := s.repo.CountStats()
	if err != nil {
		s.logger.Error("failed to load dashboard stats", "error", err)
		return nil, internal.NewInternalError("failed to load dashboard stats", err)
	}
	return stats, nil
}

// ListAuditLogs returns the most recent audit entries, ROOT_ADMIN only.
func (s *Service) ListAuditLogs(scope access.Scope, limit, offset int) ([]*AuditLog, error) {
	if !scope.Role.AtLeast(access.RoleRootAdmin) {
		return nil, internal.ErrAccessDenied
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.ListAuditLogs(limit, offset)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		return nil, internal.NewInternalError("failed to read audit trail", err)
	}
	return logs, nil
}
