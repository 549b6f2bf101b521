package domain

import "time"

// BookStatus reflects whether any copy of a book can currently be borrowed.
// It is maintained by the borrow engine, not enforced by the database:
// status is "out of stock" exactly when availableCopies is zero.
type BookStatus string

const (
	StatusAvailable  BookStatus = "available"
	StatusOutOfStock BookStatus = "out of stock"
)

const DefaultRating = 4

// Book is a catalog entry with a copy inventory.
// Invariant: 0 <= AvailableCopies <= TotalCopies.
type Book struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Author          string     `json:"author"`
	Category        string     `json:"category,omitempty"`
	Description     string     `json:"description,omitempty"`
	PublisherYear   int        `json:"publisherYear,omitempty"`
	Rating          int        `json:"rating"` // 1..5
	TotalCopies     int        `json:"totalCopies"`
	AvailableCopies int        `json:"availableCopies"`
	BorrowPrice     float64    `json:"borrowPrice"`
	Status          BookStatus `json:"status"`
	Image           string     `json:"image,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// RefreshStatus recomputes Status from the current copy count.
func (b *Book) RefreshStatus() {
	if b.AvailableCopies <= 0 {
		b.Status = StatusOutOfStock
	} else {
		b.Status = StatusAvailable
	}
}
