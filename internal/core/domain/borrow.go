package domain

import (
	"math"
	"time"
)

// BorrowType is the lifecycle state of a ledger record.
type BorrowType string

const (
	BorrowTypeBorrowed BorrowType = "borrowed"
	BorrowTypeReturned BorrowType = "returned"
	BorrowTypeOrdering BorrowType = "ordering"
	BorrowTypeOverdue  BorrowType = "overdue"
)

const (
	// BorrowPeriod is how long a borrowed copy may be kept before fines accrue.
	BorrowPeriod = 14 * 24 * time.Hour
	// OrderLeadTime is the expected arrival window for an ordered book.
	OrderLeadTime = 3 * 24 * time.Hour
	// FinePerDay is charged for each started day past the due date, in the
	// same currency unit as Book.BorrowPrice.
	FinePerDay int64 = 1000
)

// BorrowRecord links an account and a book in the append-only ledger.
// A record transitions strictly borrowed -> returned or borrowed -> overdue;
// ordering records have no return transition.
type BorrowRecord struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"userId"`
	BookID       string     `json:"bookId"`
	Type         BorrowType `json:"type"`
	BorrowedDate time.Time  `json:"borrowedDate"`
	DueDate      time.Time  `json:"dueDate"`
	ReturnedDate *time.Time `json:"returnedDate,omitempty"`
	Fine         int64      `json:"fine"`
}

// Settle closes the record at time now, computing lateness and fine.
// Settling an ordering record is rejected, and settling a record twice
// is rejected so duplicate returns cannot over-count book copies.
func (r *BorrowRecord) Settle(now time.Time) error {
	switch r.Type {
	case BorrowTypeOrdering:
		return ErrNotReturnable
	case BorrowTypeReturned, BorrowTypeOverdue:
		return ErrAlreadyReturned
	}

	r.ReturnedDate = &now
	r.Type = BorrowTypeReturned
	if now.After(r.DueDate) {
		daysLate := int64(math.Ceil(now.Sub(r.DueDate).Hours() / 24))
		r.Fine = daysLate * FinePerDay
		r.Type = BorrowTypeOverdue
	}
	return nil
}
