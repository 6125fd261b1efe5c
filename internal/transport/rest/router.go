package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/identity-service/internal/auth"
	"github.com/frahmantamala/identity-service/internal/role"
	"github.com/frahmantamala/identity-service/internal/transport/middleware"
	"github.com/frahmantamala/identity-service/internal/transport/swagger"
	"github.com/frahmantamala/identity-service/internal/user"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	rbac *auth.RBACAuthorization,
	userHandler *user.Handler,
	roleHandler *role.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	// Global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", authHandler.Register)
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
			sr.Post("/password/reset", authHandler.RequestPasswordReset)
			sr.Post("/password/reset/confirm", authHandler.ConfirmPasswordReset)
		})

		// Protected routes
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Post("/auth/password/change", authHandler.ChangePassword)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Patch("/users/me", userHandler.UpdateCurrentUser)

			// Role management requires its own permission
			pr.Group(func(ar chi.Router) {
				ar.Use(rbac.RequireManageRoles())
				ar.Post("/users/{id}/roles", roleHandler.AssignRole)
				ar.Delete("/users/{id}/roles/{roleName}", roleHandler.RemoveRole)
			})
		})
	})
}
