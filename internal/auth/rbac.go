package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/identity-service/internal"
)

// PermissionChecker answers whether a user holds a named permission.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID int64, name string) (bool, error)
}

// RBACAuthorization builds route middleware that gates handlers on
// resolved permissions. Superusers pass every gate.
type RBACAuthorization struct {
	checker PermissionChecker
	logger  *slog.Logger
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		checker: checker,
		logger:  logger,
	}
}

func (ra *RBACAuthorization) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := internal.UserIDFromContext(r.Context())
			if userID == 0 {
				ra.logger.Warn("authorization check failed: user not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			hasAccess, err := ra.checker.CheckPermission(r.Context(), userID, permission)
			if err != nil {
				ra.logger.ErrorContext(r.Context(), "authorization check failed",
					"error", err, "user_id", userID, "permission", permission)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !hasAccess {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", userID,
					"required_permission", permission)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireManageRoles gates the role management endpoints.
func (ra *RBACAuthorization) RequireManageRoles() func(http.Handler) http.Handler {
	return ra.Require("roles.manage")
}
