package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// CreateBookInput carries validated fields for a new catalog entry.
type CreateBookInput struct {
	Name            string
	Author          string
	Category        string
	Description     string
	PublisherYear   int
	Rating          int // 0 means default
	TotalCopies     int
	AvailableCopies int
	BorrowPrice     float64
	Image           string
}

// UpdateBookInput is a partial update; nil fields are left untouched.
type UpdateBookInput struct {
	Name            *string
	Author          *string
	Category        *string
	Description     *string
	PublisherYear   *int
	Rating          *int
	TotalCopies     *int
	AvailableCopies *int
	BorrowPrice     *float64
	Image           *string
}

// BookPage is the envelope for paginated catalog lists.
type BookPage struct {
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Data  []*domain.Book `json:"data"`
}

// CatalogService implements book CRUD over the catalog store.
type CatalogService interface {
	Create(ctx context.Context, input CreateBookInput) (*domain.Book, error)
	Get(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, filter BookFilter) (*BookPage, error)
	Update(ctx context.Context, id string, input UpdateBookInput) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
}
