package domain

import "time"

// Role tags an account and selects the backing collection: regular
// users and administrators are stored separately but share the same
// capability surface (id, email, password hash, active/banned flags).
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account models an authenticated identity, either a regular user or an
// administrator. Role is immutable after creation. The password hash is
// never serialized into API responses.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Image        string    `json:"image,omitempty"`
	Address      string    `json:"address,omitempty"` // admins only
	IsActive     bool      `json:"isActive"`
	IsBanned     bool      `json:"isBanned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ban marks the account banned and inactive. Both flags always move
// together; calling Ban on an already-banned account is a no-op.
func (a *Account) Ban() {
	a.IsBanned = true
	a.IsActive = false
}

// Restore lifts a ban and reactivates the account. Idempotent.
func (a *Account) Restore() {
	a.IsBanned = false
	a.IsActive = true
}

// CanLogin reports why an account may not authenticate. A banned account
// is rejected before the inactive check so the caller sees the stronger
// reason.
func (a *Account) CanLogin() error {
	if a.IsBanned {
		return ErrAccountBanned
	}
	if !a.IsActive {
		return ErrAccountInactive
	}
	return nil
}
