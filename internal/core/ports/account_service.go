package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// CreateAccountInput carries fields for admin-side account creation.
// Address is only honoured for admin accounts.
type CreateAccountInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// UpdateAccountInput is a partial update; nil fields are left untouched.
// Password, when set, is hashed by the service before persistence.
type UpdateAccountInput struct {
	Name     *string
	Email    *string
	Password *string
	Phone    *string
	Address  *string
}

// AccountPage is the envelope for paginated account lists.
type AccountPage struct {
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Data  []*domain.Account `json:"data"`
}

// AccountService implements admin account management and user
// self-service. The role argument selects which collection an admin is
// operating on.
type AccountService interface {
	Create(ctx context.Context, role domain.Role, input CreateAccountInput) (*domain.Account, error)
	Get(ctx context.Context, role domain.Role, id string) (*domain.Account, error)
	List(ctx context.Context, role domain.Role, filter AccountFilter) (*AccountPage, error)
	Update(ctx context.Context, role domain.Role, id string, input UpdateAccountInput) (*domain.Account, error)
	Delete(ctx context.Context, role domain.Role, id string) error

	// Ban sets isBanned=true, isActive=false; Restore sets the opposite.
	// Both are idempotent.
	Ban(ctx context.Context, role domain.Role, id string) (*domain.Account, error)
	Restore(ctx context.Context, role domain.Role, id string) (*domain.Account, error)

	// SetImage stores the avatar path on the account record.
	SetImage(ctx context.Context, role domain.Role, id, path string) (*domain.Account, error)

	// Self-service operations act on the authenticated user's own record.
	UpdateSelf(ctx context.Context, accountID string, input UpdateAccountInput) (*domain.Account, error)
	DeleteSelf(ctx context.Context, accountID string) error
}
