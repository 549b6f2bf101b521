package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// AccountService implements admin account management and user
// self-service on top of the credential store.
type AccountService struct {
	accounts ports.AccountRepository
	log      zerolog.Logger
}

func NewAccountService(accounts ports.AccountRepository, log zerolog.Logger) *AccountService {
	return &AccountService{accounts: accounts, log: log}
}

func (s *AccountService) Create(ctx context.Context, role domain.Role, input ports.CreateAccountInput) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Role:         role,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if role == domain.RoleAdmin {
		account.Address = input.Address
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("account_id", created.ID).Str("role", string(role)).Msg("account created")
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, role, id)
}

func (s *AccountService) List(ctx context.Context, role domain.Role, filter ports.AccountFilter) (*ports.AccountPage, error) {
	normalizePage(&filter.Page, &filter.Limit)
	accounts, total, err := s.accounts.List(ctx, role, filter)
	if err != nil {
		return nil, err
	}
	return &ports.AccountPage{Total: total, Page: filter.Page, Limit: filter.Limit, Data: accounts}, nil
}

func (s *AccountService) Update(ctx context.Context, role domain.Role, id string, input ports.UpdateAccountInput) (*domain.Account, error) {
	update, err := buildAccountUpdate(role, input)
	if err != nil {
		return nil, err
	}
	return s.accounts.Update(ctx, role, id, update)
}

func (s *AccountService) Delete(ctx context.Context, role domain.Role, id string) error {
	if err := s.accounts.Delete(ctx, role, id); err != nil {
		return err
	}
	s.log.Info().Str("account_id", id).Str("role", string(role)).Msg("account deleted")
	return nil
}

// Ban marks the account banned and inactive in one write. Both flags
// always move together.
func (s *AccountService) Ban(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	banned, active := true, false
	account, err := s.accounts.Update(ctx, role, id, ports.AccountUpdate{IsBanned: &banned, IsActive: &active})
	if err != nil {
		return nil, err
	}
	s.log.Warn().Str("account_id", id).Str("role", string(role)).Msg("account banned")
	return account, nil
}

// Restore lifts a ban. Restoring an already-active account is a no-op.
func (s *AccountService) Restore(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	banned, active := false, true
	return s.accounts.Update(ctx, role, id, ports.AccountUpdate{IsBanned: &banned, IsActive: &active})
}

func (s *AccountService) SetImage(ctx context.Context, role domain.Role, id, path string) (*domain.Account, error) {
	return s.accounts.Update(ctx, role, id, ports.AccountUpdate{Image: &path})
}

// UpdateSelf lets an authenticated user change their own record. A new
// password is re-hashed before it is stored.
func (s *AccountService) UpdateSelf(ctx context.Context, accountID string, input ports.UpdateAccountInput) (*domain.Account, error) {
	update, err := buildAccountUpdate(domain.RoleUser, input)
	if err != nil {
		return nil, err
	}
	return s.accounts.Update(ctx, domain.RoleUser, accountID, update)
}

func (s *AccountService) DeleteSelf(ctx context.Context, accountID string) error {
	if err := s.accounts.Delete(ctx, domain.RoleUser, accountID); err != nil {
		return err
	}
	s.log.Info().Str("account_id", accountID).Msg("account self-deleted")
	return nil
}

// buildAccountUpdate maps a service-level input to a persistence update,
// hashing any new password. Address is only applied to admin accounts.
func buildAccountUpdate(role domain.Role, input ports.UpdateAccountInput) (ports.AccountUpdate, error) {
	update := ports.AccountUpdate{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if role == domain.RoleAdmin {
		update.Address = input.Address
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			return ports.AccountUpdate{}, err
		}
		hashed := string(hash)
		update.PasswordHash = &hashed
	}
	return update, nil
}

// normalizePage applies list defaults and caps the page size.
func normalizePage(page, limit *int) {
	if *page < 1 {
		*page = 1
	}
	if *limit <= 0 {
		*limit = defaultPageLimit
	}
	if *limit > maxPageLimit {
		*limit = maxPageLimit
	}
}
