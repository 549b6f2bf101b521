package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

// CatalogCache abstracts the list-response cache (Redis). Keys carry a
// generation counter so mutations invalidate every cached page at once.
type CatalogCache interface {
	GetPage(ctx context.Context, filter ports.BookFilter) (*ports.BookPage, bool)
	SetPage(ctx context.Context, filter ports.BookFilter, page *ports.BookPage)
	Invalidate(ctx context.Context)
}

// CatalogService implements book CRUD over the catalog store.
type CatalogService struct {
	books ports.BookRepository
	cache CatalogCache
	log   zerolog.Logger
}

func NewCatalogService(books ports.BookRepository, cache CatalogCache, log zerolog.Logger) *CatalogService {
	return &CatalogService{books: books, cache: cache, log: log}
}

func (s *CatalogService) Create(ctx context.Context, input ports.CreateBookInput) (*domain.Book, error) {
	book := &domain.Book{
		Name:            input.Name,
		Author:          input.Author,
		Category:        input.Category,
		Description:     input.Description,
		PublisherYear:   input.PublisherYear,
		Rating:          input.Rating,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.AvailableCopies,
		BorrowPrice:     input.BorrowPrice,
		Image:           input.Image,
		CreatedAt:       time.Now().UTC(),
	}
	if book.Rating == 0 {
		book.Rating = domain.DefaultRating
	}
	book.RefreshStatus()

	created, err := s.books.Create(ctx, book)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("book_id", created.ID).Str("name", created.Name).Msg("book created")
	return created, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.FindByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, filter ports.BookFilter) (*ports.BookPage, error) {
	normalizePage(&filter.Page, &filter.Limit)

	if page, ok := s.cache.GetPage(ctx, filter); ok {
		return page, nil
	}

	books, total, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &ports.BookPage{Total: total, Page: filter.Page, Limit: filter.Limit, Data: books}
	s.cache.SetPage(ctx, filter, page)
	return page, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, input ports.UpdateBookInput) (*domain.Book, error) {
	update := ports.BookUpdate{
		Name:            input.Name,
		Author:          input.Author,
		Category:        input.Category,
		Description:     input.Description,
		PublisherYear:   input.PublisherYear,
		Rating:          input.Rating,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.AvailableCopies,
		BorrowPrice:     input.BorrowPrice,
		Image:           input.Image,
	}

	// Copy-count edits recompute status so the stock invariant holds
	// through admin corrections as well as borrow traffic.
	if input.AvailableCopies != nil {
		status := domain.StatusAvailable
		if *input.AvailableCopies <= 0 {
			status = domain.StatusOutOfStock
		}
		update.Status = &status
	}

	book, err := s.books.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	return book, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	s.log.Info().Str("book_id", id).Msg("book deleted")
	return nil
}
