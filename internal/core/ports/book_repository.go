package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// BookFilter carries query parameters for catalog listing.
// Author and Category match case-insensitively on substrings.
type BookFilter struct {
	Author   string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Page     int // 1-based
	Limit    int
}

// BookUpdate is a partial update; nil fields are left untouched.
// Copy counts and status are included so admins can correct inventory,
// but the borrow path never goes through Update.
type BookUpdate struct {
	Name            *string
	Author          *string
	Category        *string
	Description     *string
	PublisherYear   *int
	Rating          *int
	TotalCopies     *int
	AvailableCopies *int
	BorrowPrice     *float64
	Status          *domain.BookStatus
	Image           *string
}

// BookRepository persists catalog entries.
//
// BorrowCopy and ReturnCopy are the only mutations used by the borrow
// engine. Both are single atomic conditional updates so that two
// concurrent borrows of the last copy cannot drive the count negative,
// and a capped return cannot exceed totalCopies.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) (*domain.Book, error)
	FindByID(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, filter BookFilter) ([]*domain.Book, int64, error)
	Update(ctx context.Context, id string, update BookUpdate) (*domain.Book, error)
	Delete(ctx context.Context, id string) error

	// BorrowCopy decrements availableCopies by one and recomputes status in
	// one atomic step, guarded by availableCopies > 0. Returns the updated
	// book, domain.ErrOutOfStock when no copy remains, or
	// domain.ErrBookNotFound.
	BorrowCopy(ctx context.Context, id string) (*domain.Book, error)

	// ReturnCopy increments availableCopies by one, capped at totalCopies,
	// and forces status back to available. Returns the updated book.
	ReturnCopy(ctx context.Context, id string) (*domain.Book, error)

	// ForceStatus persists a status correction without touching copy counts.
	ForceStatus(ctx context.Context, id string, status domain.BookStatus) error

	FindAll(ctx context.Context) ([]*domain.Book, error)
	InsertMany(ctx context.Context, books []*domain.Book) error
}
