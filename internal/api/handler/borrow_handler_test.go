package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

type stubBorrowService struct {
	borrowFn func(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error)
	returnFn func(ctx context.Context, recordID string) (*ports.BorrowResult, error)
	orderFn  func(ctx context.Context, bookID, accountID string) (*domain.BorrowRecord, error)
	reportFn func(ctx context.Context, filter ports.BorrowFilter) (*ports.ReportPage, error)
}

func (s *stubBorrowService) Borrow(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error) {
	return s.borrowFn(ctx, bookID, accountID)
}

func (s *stubBorrowService) Return(ctx context.Context, recordID string) (*ports.BorrowResult, error) {
	return s.returnFn(ctx, recordID)
}

func (s *stubBorrowService) Order(ctx context.Context, bookID, accountID string) (*domain.BorrowRecord, error) {
	return s.orderFn(ctx, bookID, accountID)
}

func (s *stubBorrowService) Report(ctx context.Context, filter ports.BorrowFilter) (*ports.ReportPage, error) {
	return s.reportFn(ctx, filter)
}

func authedContext(t *testing.T, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := newTestContext(t, method, path, "")
	c.Set("account_id", "acc_1")
	c.Set("role", "user")
	return c, rec
}

func TestBorrowHandler_Borrow_Success(t *testing.T) {
	stub := &stubBorrowService{
		borrowFn: func(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error) {
			if bookID != "book_1" || accountID != "acc_1" {
				t.Fatalf("unexpected args: %s %s", bookID, accountID)
			}
			now := time.Now()
			return &ports.BorrowResult{
				Record: &domain.BorrowRecord{
					ID:           "rec_1",
					BookID:       bookID,
					AccountID:    accountID,
					Type:         domain.BorrowTypeBorrowed,
					BorrowedDate: now,
					DueDate:      now.Add(domain.BorrowPeriod),
				},
				Book: &domain.Book{ID: bookID, AvailableCopies: 2},
			}, nil
		},
	}
	h := NewBorrowHandler(stub)

	c, rec := authedContext(t, http.MethodPost, "/api/books/book_1/borrow")
	c.SetParamNames("id")
	c.SetParamValues("book_1")

	if err := h.Borrow(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	record, ok := resp["record"].(map[string]any)
	if !ok {
		t.Fatalf("expected record in response")
	}
	if record["type"] != "borrowed" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
}

func TestBorrowHandler_Borrow_OutOfStock(t *testing.T) {
	stub := &stubBorrowService{
		borrowFn: func(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error) {
			return nil, domain.ErrOutOfStock
		},
	}
	h := NewBorrowHandler(stub)

	c, _ := authedContext(t, http.MethodPost, "/api/books/book_1/borrow")
	c.SetParamNames("id")
	c.SetParamValues("book_1")

	err := h.Borrow(c)
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestBorrowHandler_Borrow_NoClaims(t *testing.T) {
	stub := &stubBorrowService{
		borrowFn: func(ctx context.Context, bookID, accountID string) (*ports.BorrowResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewBorrowHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/api/books/book_1/borrow", "")
	c.SetParamNames("id")
	c.SetParamValues("book_1")

	err := h.Borrow(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestBorrowHandler_Return_AlreadyReturned(t *testing.T) {
	stub := &stubBorrowService{
		returnFn: func(ctx context.Context, recordID string) (*ports.BorrowResult, error) {
			return nil, domain.ErrAlreadyReturned
		},
	}
	h := NewBorrowHandler(stub)

	c, _ := authedContext(t, http.MethodPut, "/api/books/return/rec_1")
	c.SetParamNames("recordId")
	c.SetParamValues("rec_1")

	err := h.Return(c)
	if !errors.Is(err, domain.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
}

func TestBorrowHandler_Report_PassesFilter(t *testing.T) {
	var got ports.BorrowFilter
	stub := &stubBorrowService{
		reportFn: func(ctx context.Context, filter ports.BorrowFilter) (*ports.ReportPage, error) {
			got = filter
			return &ports.ReportPage{Total: 0, Page: filter.Page, Limit: filter.Limit}, nil
		},
	}
	h := NewBorrowHandler(stub)

	c, rec := authedContext(t, http.MethodGet, "/api/books/reports?type=overdue&page=2&limit=5")

	if err := h.Report(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Type != "overdue" || got.Page != 2 || got.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", got)
	}
}
