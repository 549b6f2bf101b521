package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// RegisterInput carries validated registration fields. Registration
// always creates a regular user; admins are created by other admins.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthService issues and backs bearer tokens.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Account, error)
	// Login checks the user collection first, then admins. On success it
	// returns a signed 24-hour token binding the account id and role.
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	// ResolveAdmin re-fetches an admin account by id. Admin-scoped routes
	// call this on every request so a deleted admin's still-valid token is
	// rejected immediately.
	ResolveAdmin(ctx context.Context, id string) (*domain.Account, error)
}
