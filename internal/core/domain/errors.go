package domain

import "errors"

var (
	// Auth / accounts.
	ErrEmailBanned        = errors.New("email is banned")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBanned      = errors.New("account is banned")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrForbidden          = errors.New("access forbidden")

	// Catalog / ledger.
	ErrBookNotFound    = errors.New("book not found")
	ErrOutOfStock      = errors.New("book out of stock")
	ErrRecordNotFound  = errors.New("borrow record not found")
	ErrNotReturnable   = errors.New("record is not returnable")
	ErrAlreadyReturned = errors.New("record already returned")

	// Bulk transfer.
	ErrInvalidTransferType = errors.New("invalid transfer type")
)
