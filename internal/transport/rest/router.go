package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/org-management/internal/admin"
	"github.com/frahmantamala/org-management/internal/auth"
	"github.com/frahmantamala/org-management/internal/department"
	"github.com/frahmantamala/org-management/internal/importer"
	"github.com/frahmantamala/org-management/internal/resource"
	"github.com/frahmantamala/org-management/internal/team"
	"github.com/frahmantamala/org-management/internal/transport/middleware"
	"github.com/frahmantamala/org-management/internal/transport/swagger"
	"github.com/frahmantamala/org-management/internal/user"
)

// Handlers bundles every route handler the server mounts.
type Handlers struct {
	Auth       *auth.Handler
	Roles      *auth.RoleAuthorization
	Department *department.Handler
	User       *user.Handler
	Resource   *resource.Handler
	Team       *team.Handler
	Importer   *importer.Handler
	Admin      *admin.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetProfile)

			pr.Route("/departments", func(dr chi.Router) {
				dr.Get("/", h.Department.List)
				dr.Get("/{id}", h.Department.Get)
				dr.Get("/{id}/subtree", h.Department.GetSubtree)
				dr.Get("/{id}/ancestors", h.Department.GetAncestors)

				dr.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireOrgAdmin())
					mr.Post("/", h.Department.Create)
					mr.Patch("/{id}", h.Department.Update)
					mr.Delete("/{id}", h.Department.Delete)
				})
			})

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", h.User.List)
				ur.Get("/{id}", h.User.Get)
				ur.Get("/{id}/hierarchy", h.User.GetHierarchy)
				ur.Patch("/{id}", h.User.Update)

				ur.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireUnitAdmin())
					mr.Post("/", h.User.Create)
					mr.Put("/{id}/manager", h.User.ChangeManager)
				})

				ur.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireOrgAdmin())
					mr.Delete("/{id}", h.User.Delete)
				})
			})

			pr.Route("/resources", func(rr chi.Router) {
				rr.Get("/", h.Resource.List)
				rr.Get("/{id}", h.Resource.Get)

				rr.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireUnitAdmin())
					mr.Post("/", h.Resource.Create)
					mr.Patch("/{id}", h.Resource.Update)
					mr.Delete("/{id}", h.Resource.Delete)
					mr.Post("/{id}/assign", h.Resource.Assign)
					mr.Post("/{id}/release", h.Resource.Release)
				})
			})

			pr.Route("/facilities", func(fr chi.Router) {
				fr.Get("/", h.Resource.ListFacilities)
				fr.Get("/{id}", h.Resource.GetFacility)

				fr.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireUnitAdmin())
					mr.Post("/", h.Resource.CreateFacility)
					mr.Patch("/{id}", h.Resource.UpdateFacility)
					mr.Delete("/{id}", h.Resource.DeleteFacility)
				})
			})

			pr.Route("/teams", func(tr chi.Router) {
				tr.Get("/", h.Team.List)
				tr.Get("/{id}", h.Team.Get)
				tr.Get("/{id}/projects", h.Team.ListProjects)

				tr.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireUnitAdmin())
					mr.Post("/", h.Team.Create)
					mr.Patch("/{id}", h.Team.Update)
					mr.Delete("/{id}", h.Team.Delete)
					mr.Post("/{id}/members", h.Team.AddMember)
					mr.Delete("/{id}/members/{userID}", h.Team.RemoveMember)
					mr.Post("/{id}/projects", h.Team.CreateProject)
				})
			})

			pr.Group(func(mr chi.Router) {
				mr.Use(h.Roles.RequireUnitAdmin())
				mr.Patch("/projects/{projectID}", h.Team.UpdateProject)
				mr.Delete("/projects/{projectID}", h.Team.DeleteProject)
			})

			pr.Route("/import", func(ir chi.Router) {
				ir.Use(h.Roles.RequireOrgAdmin())
				ir.Post("/departments", h.Importer.ImportDepartments)
				ir.Post("/users", h.Importer.ImportUsers)
				ir.Post("/facilities", h.Importer.ImportFacilities)
				ir.Get("/jobs/{id}", h.Importer.GetJob)
			})

			pr.Route("/admin", func(ar chi.Router) {
				ar.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireOrgAdmin())
					mr.Get("/dashboard", h.Admin.Dashboard)
				})
				ar.Group(func(mr chi.Router) {
					mr.Use(h.Roles.RequireRootAdmin())
					mr.Get("/audit-logs", h.Admin.AuditLogs)
				})
			})
		})
	})
}
