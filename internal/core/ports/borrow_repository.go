package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// BorrowFilter selects ledger rows for the borrower report.
type BorrowFilter struct {
	Type  string // optional: borrowed, returned, ordering, overdue
	Page  int    // 1-based
	Limit int
}

// BorrowReportRow is a ledger record joined with borrower and book
// identity fields for the admin report.
type BorrowReportRow struct {
	Record       *domain.BorrowRecord `json:"record"`
	AccountName  string               `json:"accountName"`
	AccountEmail string               `json:"accountEmail"`
	BookName     string               `json:"bookName"`
	BookAuthor   string               `json:"bookAuthor"`
}

// BorrowRepository persists the append-only borrow ledger. Records are
// never deleted by normal flow; the only overwrite path is bulk import.
type BorrowRepository interface {
	Create(ctx context.Context, record *domain.BorrowRecord) (*domain.BorrowRecord, error)
	FindByID(ctx context.Context, id string) (*domain.BorrowRecord, error)
	// Update rewrites the mutable settlement fields (type, returnedDate,
	// fine) of an existing record.
	Update(ctx context.Context, record *domain.BorrowRecord) error
	// Report returns joined rows and the total count matching filter.
	Report(ctx context.Context, filter BorrowFilter) ([]*BorrowReportRow, int64, error)

	FindAll(ctx context.Context) ([]*domain.BorrowRecord, error)
	InsertMany(ctx context.Context, records []*domain.BorrowRecord) error
}
