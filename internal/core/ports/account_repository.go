package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// AccountFilter carries pagination and case-insensitive substring filters
// for account list queries. Address only applies to admin accounts.
type AccountFilter struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Page    int // 1-based
	Limit   int
}

// AccountUpdate is a partial update; nil fields are left untouched.
// Role is deliberately absent: it is immutable after creation.
type AccountUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Phone        *string
	Address      *string
	Image        *string
	IsActive     *bool
	IsBanned     *bool
}

// AccountRepository persists accounts. The role argument selects the
// backing collection (users or admins); both collections enforce a
// unique email index.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error)
	List(ctx context.Context, role domain.Role, filter AccountFilter) ([]*domain.Account, int64, error)
	Update(ctx context.Context, role domain.Role, id string, update AccountUpdate) (*domain.Account, error)
	Delete(ctx context.Context, role domain.Role, id string) error

	// FindAll and InsertMany back the bulk spreadsheet transfer.
	// InsertMany is fail-the-batch: any bad row aborts the whole insert.
	FindAll(ctx context.Context, role domain.Role) ([]*domain.Account, error)
	InsertMany(ctx context.Context, role domain.Role, accounts []*domain.Account) error
}
