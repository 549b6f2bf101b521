package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

// stubBookRepo guards every mutation with a mutex, mirroring the
// atomicity of the real Mongo conditional updates.
type stubBookRepo struct {
	mu           sync.Mutex
	seq          int
	books        map[string]*domain.Book
	forcedStatus []string // book ids passed to ForceStatus
}

func newStubBookRepo() *stubBookRepo {
	return &stubBookRepo{books: make(map[string]*domain.Book)}
}

func cloneBook(b *domain.Book) *domain.Book {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

func (r *stubBookRepo) add(b *domain.Book) *domain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := cloneBook(b)
	clone.ID = "book_" + strconv.Itoa(r.seq)
	clone.RefreshStatus()
	r.books[clone.ID] = clone
	return cloneBook(clone)
}

func (r *stubBookRepo) Create(_ context.Context, b *domain.Book) (*domain.Book, error) {
	return r.add(b), nil
}

func (r *stubBookRepo) FindByID(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return cloneBook(b), nil
}

func (r *stubBookRepo) List(_ context.Context, f ports.BookFilter) ([]*domain.Book, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Book
	for i := 1; i <= r.seq; i++ {
		if b, ok := r.books["book_"+strconv.Itoa(i)]; ok {
			all = append(all, cloneBook(b))
		}
	}
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubBookRepo) Update(_ context.Context, id string, u ports.BookUpdate) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.TotalCopies != nil {
		b.TotalCopies = *u.TotalCopies
	}
	if u.AvailableCopies != nil {
		b.AvailableCopies = *u.AvailableCopies
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	return cloneBook(b), nil
}

func (r *stubBookRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *stubBookRepo) BorrowCopy(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	if b.AvailableCopies <= 0 {
		return nil, domain.ErrOutOfStock
	}
	b.AvailableCopies--
	b.RefreshStatus()
	return cloneBook(b), nil
}

func (r *stubBookRepo) ReturnCopy(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
	b.Status = domain.StatusAvailable
	return cloneBook(b), nil
}

func (r *stubBookRepo) ForceStatus(_ context.Context, id string, status domain.BookStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return domain.ErrBookNotFound
	}
	b.Status = status
	r.forcedStatus = append(r.forcedStatus, id)
	return nil
}

func (r *stubBookRepo) FindAll(_ context.Context) ([]*domain.Book, error) {
	books, _, err := r.List(context.Background(), ports.BookFilter{Page: 1, Limit: 1 << 20})
	return books, err
}

func (r *stubBookRepo) InsertMany(_ context.Context, books []*domain.Book) error {
	for _, b := range books {
		r.add(b)
	}
	return nil
}

type stubBorrowRepo struct {
	mu        sync.Mutex
	seq       int
	records   map[string]*domain.BorrowRecord
	createErr error
}

func newStubBorrowRepo() *stubBorrowRepo {
	return &stubBorrowRepo{records: make(map[string]*domain.BorrowRecord)}
}

func cloneRecord(rec *domain.BorrowRecord) *domain.BorrowRecord {
	if rec == nil {
		return nil
	}
	clone := *rec
	if rec.ReturnedDate != nil {
		t := *rec.ReturnedDate
		clone.ReturnedDate = &t
	}
	return &clone
}

func (r *stubBorrowRepo) Create(_ context.Context, rec *domain.BorrowRecord) (*domain.BorrowRecord, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := cloneRecord(rec)
	clone.ID = "rec_" + strconv.Itoa(r.seq)
	r.records[clone.ID] = clone
	return cloneRecord(clone), nil
}

func (r *stubBorrowRepo) FindByID(_ context.Context, id string) (*domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (r *stubBorrowRepo) Update(_ context.Context, rec *domain.BorrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return domain.ErrRecordNotFound
	}
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *stubBorrowRepo) Report(_ context.Context, f ports.BorrowFilter) ([]*ports.BorrowReportRow, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*ports.BorrowReportRow
	for i := 1; i <= r.seq; i++ {
		rec, ok := r.records["rec_"+strconv.Itoa(i)]
		if !ok {
			continue
		}
		if f.Type != "" && string(rec.Type) != f.Type {
			continue
		}
		matched = append(matched, &ports.BorrowReportRow{Record: cloneRecord(rec)})
	}
	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *stubBorrowRepo) FindAll(_ context.Context) ([]*domain.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.BorrowRecord
	for i := 1; i <= r.seq; i++ {
		if rec, ok := r.records["rec_"+strconv.Itoa(i)]; ok {
			all = append(all, cloneRecord(rec))
		}
	}
	return all, nil
}

func (r *stubBorrowRepo) InsertMany(_ context.Context, records []*domain.BorrowRecord) error {
	for _, rec := range records {
		if _, err := r.Create(context.Background(), rec); err != nil {
			return err
		}
	}
	return nil
}

// nopCache satisfies CatalogCache without caching anything.
type nopCache struct {
	invalidations int
}

func (c *nopCache) GetPage(context.Context, ports.BookFilter) (*ports.BookPage, bool) {
	return nil, false
}
func (c *nopCache) SetPage(context.Context, ports.BookFilter, *ports.BookPage) {}
func (c *nopCache) Invalidate(context.Context)                                 { c.invalidations++ }

func newBorrowService(books ports.BookRepository, records ports.BorrowRepository) *BorrowService {
	return NewBorrowService(books, records, &nopCache{}, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// Borrow
// ---------------------------------------------------------------------------

func TestBorrowService_Borrow_Success(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", Author: "Herbert", TotalCopies: 3, AvailableCopies: 3})
	svc := newBorrowService(books, records)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("Borrow returned error: %v", err)
	}
	if result.Book.AvailableCopies != 2 {
		t.Fatalf("expected 2 copies left, got %d", result.Book.AvailableCopies)
	}
	if result.Book.Status != domain.StatusAvailable {
		t.Fatalf("expected status available, got %q", result.Book.Status)
	}
	if result.Record.Type != domain.BorrowTypeBorrowed {
		t.Fatalf("expected borrowed record, got %q", result.Record.Type)
	}
	if !result.Record.BorrowedDate.Equal(now) {
		t.Fatalf("unexpected borrowedDate: %v", result.Record.BorrowedDate)
	}
	if want := now.Add(14 * 24 * time.Hour); !result.Record.DueDate.Equal(want) {
		t.Fatalf("expected dueDate %v, got %v", want, result.Record.DueDate)
	}
	if result.Record.Fine != 0 {
		t.Fatalf("expected zero fine, got %d", result.Record.Fine)
	}
}

func TestBorrowService_Borrow_LastCopyFlipsStatus(t *testing.T) {
	books := newStubBookRepo()
	book := books.add(&domain.Book{Name: "Solo", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, newStubBorrowRepo())

	result, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("Borrow returned error: %v", err)
	}
	if result.Book.AvailableCopies != 0 {
		t.Fatalf("expected 0 copies, got %d", result.Book.AvailableCopies)
	}
	if result.Book.Status != domain.StatusOutOfStock {
		t.Fatalf("expected out of stock, got %q", result.Book.Status)
	}
}

func TestBorrowService_Borrow_Depleted(t *testing.T) {
	books := newStubBookRepo()
	book := books.add(&domain.Book{Name: "Gone", TotalCopies: 1, AvailableCopies: 0})
	// Simulate stale status left behind by an out-of-band correction.
	books.books[book.ID].Status = domain.StatusAvailable
	svc := newBorrowService(books, newStubBorrowRepo())

	_, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	// Self-healing write must have forced status back to out of stock.
	if len(books.forcedStatus) != 1 || books.forcedStatus[0] != book.ID {
		t.Fatalf("expected ForceStatus call on %s, got %v", book.ID, books.forcedStatus)
	}
	if books.books[book.ID].Status != domain.StatusOutOfStock {
		t.Fatalf("status not healed: %q", books.books[book.ID].Status)
	}
}

func TestBorrowService_Borrow_MissingBook(t *testing.T) {
	svc := newBorrowService(newStubBookRepo(), newStubBorrowRepo())

	_, err := svc.Borrow(context.Background(), "book_404", "acc_1")
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock for missing book, got %v", err)
	}
}

func TestBorrowService_Borrow_LedgerFailureRestoresCopy(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	records.createErr = errors.New("ledger down")
	book := books.add(&domain.Book{Name: "Flaky", TotalCopies: 2, AvailableCopies: 2})
	svc := newBorrowService(books, records)

	if _, err := svc.Borrow(context.Background(), book.ID, "acc_1"); err == nil {
		t.Fatalf("expected error from ledger failure")
	}
	if got := books.books[book.ID].AvailableCopies; got != 2 {
		t.Fatalf("copy leaked: expected 2 available, got %d", got)
	}
}

// Two goroutines race for the last copy; the conditional decrement must
// let exactly one through and never produce a negative count.
func TestBorrowService_Borrow_ConcurrentLastCopy(t *testing.T) {
	books := newStubBookRepo()
	book := books.add(&domain.Book{Name: "Contended", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, newStubBorrowRepo())

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), book.ID, fmt.Sprintf("acc_%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrOutOfStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly 1 successful borrow, got %d", succeeded)
	}
	if got := books.books[book.ID].AvailableCopies; got != 0 {
		t.Fatalf("expected 0 copies, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Return
// ---------------------------------------------------------------------------

func TestBorrowService_Return_OnTime(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	borrowed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return borrowed }
	result, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("borrow failed: %v", err)
	}

	svc.now = func() time.Time { return borrowed.Add(10 * 24 * time.Hour) }
	returned, err := svc.Return(context.Background(), result.Record.ID)
	if err != nil {
		t.Fatalf("Return returned error: %v", err)
	}
	if returned.Record.Type != domain.BorrowTypeReturned {
		t.Fatalf("expected returned, got %q", returned.Record.Type)
	}
	if returned.Record.Fine != 0 {
		t.Fatalf("expected zero fine, got %d", returned.Record.Fine)
	}
	if returned.Book.AvailableCopies != 1 {
		t.Fatalf("expected copy restored, got %d", returned.Book.AvailableCopies)
	}
	if returned.Book.Status != domain.StatusAvailable {
		t.Fatalf("expected available, got %q", returned.Book.Status)
	}
}

func TestBorrowService_Return_FifteenDaysLate(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	borrowed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return borrowed }
	result, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("borrow failed: %v", err)
	}

	// 14-day period plus 15 days late.
	svc.now = func() time.Time { return borrowed.Add((14 + 15) * 24 * time.Hour) }
	returned, err := svc.Return(context.Background(), result.Record.ID)
	if err != nil {
		t.Fatalf("Return returned error: %v", err)
	}
	if returned.Record.Type != domain.BorrowTypeOverdue {
		t.Fatalf("expected overdue, got %q", returned.Record.Type)
	}
	if returned.Record.Fine != 15*domain.FinePerDay {
		t.Fatalf("expected fine %d, got %d", 15*domain.FinePerDay, returned.Record.Fine)
	}
}

func TestBorrowService_Return_PartialDayRoundsUp(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	borrowed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return borrowed }
	result, _ := svc.Borrow(context.Background(), book.ID, "acc_1")

	// One hour past the due date still counts as a full late day.
	svc.now = func() time.Time { return borrowed.Add(14*24*time.Hour + time.Hour) }
	returned, err := svc.Return(context.Background(), result.Record.ID)
	if err != nil {
		t.Fatalf("Return returned error: %v", err)
	}
	if returned.Record.Fine != domain.FinePerDay {
		t.Fatalf("expected fine %d, got %d", domain.FinePerDay, returned.Record.Fine)
	}
}

func TestBorrowService_Return_Twice(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	result, _ := svc.Borrow(context.Background(), book.ID, "acc_1")
	if _, err := svc.Return(context.Background(), result.Record.ID); err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	if _, err := svc.Return(context.Background(), result.Record.ID); !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	// The second return must not over-count the inventory.
	if got := books.books[book.ID].AvailableCopies; got != 1 {
		t.Fatalf("expected 1 available, got %d", got)
	}
}

func TestBorrowService_Return_OrderingRecord(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	record, err := svc.Order(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if _, err := svc.Return(context.Background(), record.ID); !errors.Is(err, domain.ErrNotReturnable) {
		t.Fatalf("expected ErrNotReturnable, got %v", err)
	}
}

func TestBorrowService_Return_MissingRecord(t *testing.T) {
	svc := newBorrowService(newStubBookRepo(), newStubBorrowRepo())

	if _, err := svc.Return(context.Background(), "rec_404"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestBorrowService_Return_BookSinceDeleted(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Gone", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	result, _ := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err := books.Delete(context.Background(), book.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	returned, err := svc.Return(context.Background(), result.Record.ID)
	if err != nil {
		t.Fatalf("expected settlement despite missing book, got %v", err)
	}
	if returned.Record.Type != domain.BorrowTypeReturned {
		t.Fatalf("expected returned, got %q", returned.Record.Type)
	}
	if returned.Book != nil {
		t.Fatalf("expected nil book, got %+v", returned.Book)
	}
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

func TestBorrowService_Order_Success(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 2, AvailableCopies: 2})
	svc := newBorrowService(books, records)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	record, err := svc.Order(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}
	if record.Type != domain.BorrowTypeOrdering {
		t.Fatalf("expected ordering, got %q", record.Type)
	}
	if want := now.Add(3 * 24 * time.Hour); !record.DueDate.Equal(want) {
		t.Fatalf("expected dueDate %v, got %v", want, record.DueDate)
	}
	// Ordering never touches inventory.
	if got := books.books[book.ID].AvailableCopies; got != 2 {
		t.Fatalf("expected 2 available, got %d", got)
	}
}

func TestBorrowService_Order_MissingBook(t *testing.T) {
	svc := newBorrowService(newStubBookRepo(), newStubBorrowRepo())

	if _, err := svc.Order(context.Background(), "book_404", "acc_1"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Report / end-to-end
// ---------------------------------------------------------------------------

func TestBorrowService_Report_TypeFilterAndPaging(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Dune", TotalCopies: 20, AvailableCopies: 20})
	svc := newBorrowService(books, records)

	for i := 0; i < 7; i++ {
		if _, err := svc.Borrow(context.Background(), book.ID, fmt.Sprintf("acc_%d", i)); err != nil {
			t.Fatalf("borrow %d failed: %v", i, err)
		}
	}
	if _, err := svc.Order(context.Background(), book.ID, "acc_9"); err != nil {
		t.Fatalf("order failed: %v", err)
	}

	page, err := svc.Report(context.Background(), ports.BorrowFilter{Type: "borrowed", Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if page.Total != 7 {
		t.Fatalf("expected total 7, got %d", page.Total)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 rows on page 2, got %d", len(page.Data))
	}
}

// Single-copy lifecycle: borrow empties the shelf, a second borrower is
// turned away, the return restores availability.
func TestBorrowService_SingleCopyLifecycle(t *testing.T) {
	books := newStubBookRepo()
	records := newStubBorrowRepo()
	book := books.add(&domain.Book{Name: "Rare", TotalCopies: 1, AvailableCopies: 1})
	svc := newBorrowService(books, records)

	first, err := svc.Borrow(context.Background(), book.ID, "acc_1")
	if err != nil {
		t.Fatalf("first borrow failed: %v", err)
	}
	if first.Book.AvailableCopies != 0 || first.Book.Status != domain.StatusOutOfStock {
		t.Fatalf("unexpected state after borrow: %+v", first.Book)
	}

	if _, err := svc.Borrow(context.Background(), book.ID, "acc_2"); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock for second borrower, got %v", err)
	}

	returned, err := svc.Return(context.Background(), first.Record.ID)
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if returned.Book.AvailableCopies != 1 || returned.Book.Status != domain.StatusAvailable {
		t.Fatalf("unexpected state after return: %+v", returned.Book)
	}
}
