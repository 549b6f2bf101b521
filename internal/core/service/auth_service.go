package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

// bcryptCost matches the cost the original account data was hashed with,
// so imported credentials keep working.
const bcryptCost = 10

// AuthService implements registration, login, and admin re-resolution.
type AuthService struct {
	accounts  ports.AccountRepository
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(accounts ports.AccountRepository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{accounts: accounts, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

// Register creates a regular user account. A banned email may not
// re-register; a live duplicate surfaces as ErrEmailTaken through the
// unique index on the users collection.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.Account, error) {
	existing, err := s.accounts.FindByEmail(ctx, domain.RoleUser, input.Email)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsBanned {
		return nil, domain.ErrEmailBanned
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Role:         domain.RoleUser,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", created.ID).Str("email", created.Email).Msg("user registered")
	return created, nil
}

// Login authenticates against the user collection first, then admins,
// and issues a signed token on success. Banned and inactive accounts
// never receive a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, domain.RoleUser, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account, err = s.accounts.FindByEmail(ctx, domain.RoleAdmin, email)
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := account.CanLogin(); err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("account_id", account.ID).Str("role", string(account.Role)).Msg("login succeeded")
	return token, account, nil
}

// ResolveAdmin re-fetches an admin by id for the privileged request path.
func (s *AuthService) ResolveAdmin(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, domain.RoleAdmin, id)
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":  account.ID,
		"role": string(account.Role),
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
