package ports

import (
	"context"

	"github.com/openshelf/library-system/internal/core/domain"
)

// BorrowResult pairs the ledger record with the book state it produced.
type BorrowResult struct {
	Record *domain.BorrowRecord `json:"record"`
	Book   *domain.Book         `json:"book"`
}

// ReportPage is the envelope for the paginated borrower report.
type ReportPage struct {
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Data  []*BorrowReportRow `json:"data"`
}

// BorrowService is the inventory/borrow engine. It is the only writer of
// book copy counts outside admin CRUD and the only producer of ledger
// records.
type BorrowService interface {
	// Borrow takes one copy of the book and opens a 14-day borrow record.
	// A depleted or missing book yields domain.ErrOutOfStock.
	Borrow(ctx context.Context, bookID, accountID string) (*BorrowResult, error)

	// Return settles a borrow record, computing overdue fines, and gives
	// the copy back to the catalog.
	Return(ctx context.Context, recordID string) (*BorrowResult, error)

	// Order opens an ordering record with a 3-day lead time without
	// touching the book's inventory.
	Order(ctx context.Context, bookID, accountID string) (*domain.BorrowRecord, error)

	// Report lists joined ledger rows for admins.
	Report(ctx context.Context, filter BorrowFilter) (*ReportPage, error)
}
