package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/api/metrics"
	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

// BorrowHandler serves the borrow/order/return lifecycle and the admin
// ledger report.
type BorrowHandler struct {
	borrows ports.BorrowService
}

func NewBorrowHandler(borrows ports.BorrowService) *BorrowHandler {
	return &BorrowHandler{borrows: borrows}
}

// Borrow handles POST /books/:id/borrow.
//
// @Summary      Borrow a book
// @Tags         borrow
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Book id"
// @Success      201  {object}  ports.BorrowResult
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /books/{id}/borrow [post]
func (h *BorrowHandler) Borrow(c echo.Context) error {
	accountID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	result, err := h.borrows.Borrow(c.Request().Context(), c.Param("id"), accountID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOutOfStock):
			metrics.BorrowsTotal.WithLabelValues("out_of_stock").Inc()
		default:
			metrics.BorrowsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.BorrowsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, result)
}

// Order handles POST /books/:id/order.
func (h *BorrowHandler) Order(c echo.Context) error {
	accountID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	record, err := h.borrows.Order(c.Request().Context(), c.Param("id"), accountID)
	if err != nil {
		return err
	}

	metrics.OrdersTotal.Inc()
	return c.JSON(http.StatusCreated, record)
}

// Return handles PUT /books/return/:recordId.
func (h *BorrowHandler) Return(c echo.Context) error {
	if _, _, err := ctxClaims(c); err != nil {
		return err
	}

	result, err := h.borrows.Return(c.Request().Context(), c.Param("recordId"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotReturnable), errors.Is(err, domain.ErrAlreadyReturned):
			metrics.ReturnsTotal.WithLabelValues("rejected").Inc()
		default:
			metrics.ReturnsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	if result.Record.Type == domain.BorrowTypeOverdue {
		metrics.ReturnsTotal.WithLabelValues("overdue").Inc()
		metrics.FinesAssessedTotal.Add(float64(result.Record.Fine))
	} else {
		metrics.ReturnsTotal.WithLabelValues("returned").Inc()
	}
	return c.JSON(http.StatusOK, result)
}

// Report handles GET /books/reports.
//
// @Summary      Borrow ledger report
// @Tags         borrow
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int     false  "Page number (1-based)"
// @Param        limit  query  int     false  "Page size"
// @Param        type   query  string  false  "Record type filter"
// @Success      200  {object}  ports.ReportPage
// @Router       /books/reports [get]
func (h *BorrowHandler) Report(c echo.Context) error {
	page, limit := pageParams(c)
	result, err := h.borrows.Report(c.Request().Context(), ports.BorrowFilter{
		Type:  c.QueryParam("type"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
