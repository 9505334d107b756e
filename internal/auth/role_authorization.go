package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/org-management/internal/access"
)

// RoleAuthorization gates mutating routes on a minimum role. Scoped
// per-record checks still happen in the services; this middleware only
// enforces the privilege floor an endpoint declares.
type RoleAuthorization struct {
	logger *slog.Logger
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	return &RoleAuthorization{logger: logger}
}

func (ra *RoleAuthorization) RequireRole(minimum access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.Role.AtLeast(minimum) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient role",
					"user_id", user.ID,
					"user_role", user.Role,
					"required_role", minimum)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RoleAuthorization) RequireOrgAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(access.RoleOrgAdmin)
}

func (ra *RoleAuthorization) RequireUnitAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(access.RoleUnitAdmin)
}

func (ra *RoleAuthorization) RequireRootAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(access.RoleRootAdmin)
}
