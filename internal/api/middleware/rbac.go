package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/core/domain"
)

// AdminResolver re-fetches an admin account by id. Satisfied by
// ports.AuthService.
type AdminResolver interface {
	ResolveAdmin(ctx context.Context, id string) (*domain.Account, error)
}

// RequireRole enforces that the token role is one of the allowed roles.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequireAdmin enforces the admin role and re-fetches the admin record
// on every request, so a deleted admin's still-valid token stops
// working immediately.
func RequireAdmin(resolver AdminResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role != string(domain.RoleAdmin) {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}

			id, _ := c.Get("account_id").(string)
			admin, err := resolver.ResolveAdmin(c.Request().Context(), id)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "admin account no longer exists")
			}
			if !admin.IsActive || admin.IsBanned {
				return echo.NewHTTPError(http.StatusForbidden, "admin account is disabled")
			}

			return next(c)
		}
	}
}
