package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

// BorrowService is the inventory/borrow engine. All copy-count mutations
// on the borrow path go through the repository's atomic conditional
// updates, so concurrent borrows of the last copy cannot drive the count
// negative and duplicate returns cannot over-count.
type BorrowService struct {
	books   ports.BookRepository
	records ports.BorrowRepository
	cache   CatalogCache
	log     zerolog.Logger
	now     func() time.Time
}

func NewBorrowService(books ports.BookRepository, records ports.BorrowRepository, cache CatalogCache, log zerolog.Logger) *BorrowService {
	return &BorrowService{
		books:   books,
		records: records,
		cache:   cache,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Borrow takes one copy and opens a 14-day borrow record. Per the API
// contract, a missing book surfaces as out-of-stock just like a depleted
// one. When the book exists but has no copy left, its status is
// re-persisted as "out of stock" before failing: an idempotent
// self-healing write covering counts corrected behind the engine's back.
func (s *BorrowService) Borrow(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error) {
	book, err := s.books.BorrowCopy(ctx, bookID)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, domain.ErrOutOfStock
		}
		if errors.Is(err, domain.ErrOutOfStock) {
			if healErr := s.books.ForceStatus(ctx, bookID, domain.StatusOutOfStock); healErr != nil {
				s.log.Warn().Err(healErr).Str("book_id", bookID).Msg("stock status self-heal failed")
			}
			return nil, domain.ErrOutOfStock
		}
		return nil, fmt.Errorf("borrow copy: %w", err)
	}

	now := s.now()
	record, err := s.records.Create(ctx, &domain.BorrowRecord{
		AccountID:    accountID,
		BookID:       book.ID,
		Type:         domain.BorrowTypeBorrowed,
		BorrowedDate: now,
		DueDate:      now.Add(domain.BorrowPeriod),
	})
	if err != nil {
		// The copy was already taken; give it back so the inventory does
		// not leak when the ledger write fails.
		if _, undoErr := s.books.ReturnCopy(ctx, book.ID); undoErr != nil {
			s.log.Error().Err(undoErr).Str("book_id", book.ID).Msg("failed to undo borrow after ledger error")
		}
		return nil, fmt.Errorf("append borrow record: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("record_id", record.ID).
		Str("book_id", book.ID).
		Str("account_id", accountID).
		Int("available_copies", book.AvailableCopies).
		Msg("book borrowed")

	return &ports.BorrowResult{Record: record, Book: book}, nil
}

// Return settles a borrow record and gives the copy back. A record may
// be settled once: a second return, or a return against an ordering
// record, is rejected before any inventory write.
func (s *BorrowService) Return(ctx context.Context, recordID string) (*ports.BorrowResult, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if err := record.Settle(s.now()); err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("settle borrow record: %w", err)
	}

	book, err := s.books.ReturnCopy(ctx, record.BookID)
	if err != nil {
		// The linked book may have been deleted since borrowing; the
		// settlement above still stands (no cascade between ledger and
		// catalog).
		if errors.Is(err, domain.ErrBookNotFound) {
			s.log.Warn().Str("record_id", recordID).Str("book_id", record.BookID).Msg("returned record references missing book")
			return &ports.BorrowResult{Record: record}, nil
		}
		return nil, fmt.Errorf("return copy: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("record_id", record.ID).
		Str("book_id", book.ID).
		Str("type", string(record.Type)).
		Int64("fine", record.Fine).
		Msg("book returned")

	return &ports.BorrowResult{Record: record, Book: book}, nil
}

// Order opens an ordering record without touching inventory. There is no
// completion transition for orders; an ordering record cannot be
// returned.
func (s *BorrowService) Order(ctx context.Context, bookID, accountID string) (*domain.BorrowRecord, error) {
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record, err := s.records.Create(ctx, &domain.BorrowRecord{
		AccountID:    accountID,
		BookID:       book.ID,
		Type:         domain.BorrowTypeOrdering,
		BorrowedDate: now,
		DueDate:      now.Add(domain.OrderLeadTime),
	})
	if err != nil {
		return nil, fmt.Errorf("append order record: %w", err)
	}

	s.log.Info().Str("record_id", record.ID).Str("book_id", book.ID).Str("account_id", accountID).Msg("book ordered")
	return record, nil
}

// Report lists joined ledger rows for admins.
func (s *BorrowService) Report(ctx context.Context, filter ports.BorrowFilter) (*ports.ReportPage, error) {
	normalizePage(&filter.Page, &filter.Limit)
	rows, total, err := s.records.Report(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ports.ReportPage{Total: total, Page: filter.Page, Limit: filter.Limit, Data: rows}, nil
}
