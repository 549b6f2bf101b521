package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/core/ports"
)

// BookHandler serves catalog CRUD.
type BookHandler struct {
	catalog ports.CatalogService
}

func NewBookHandler(catalog ports.CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

type createBookRequest struct {
	Name            string  `json:"name" validate:"required"`
	Author          string  `json:"author" validate:"required"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	PublisherYear   int     `json:"publisherYear"`
	Rating          int     `json:"rating" validate:"omitempty,gte=1"`
	TotalCopies     int     `json:"totalCopies" validate:"gte=0"`
	AvailableCopies int     `json:"availableCopies" validate:"gte=0"`
	BorrowPrice     float64 `json:"borrowPrice" validate:"gte=0"`
	Image           string  `json:"image"`
}

type updateBookRequest struct {
	Name            *string  `json:"name"`
	Author          *string  `json:"author"`
	Category        *string  `json:"category"`
	Description     *string  `json:"description"`
	PublisherYear   *int     `json:"publisherYear"`
	Rating          *int     `json:"rating" validate:"omitempty,gte=1"`
	TotalCopies     *int     `json:"totalCopies" validate:"omitempty,gte=0"`
	AvailableCopies *int     `json:"availableCopies" validate:"omitempty,gte=0"`
	BorrowPrice     *float64 `json:"borrowPrice" validate:"omitempty,gte=0"`
	Image           *string  `json:"image"`
}

// List handles GET /books.
//
// @Summary      List books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        page      query  int     false  "Page number (1-based)"
// @Param        limit     query  int     false  "Page size"
// @Param        author    query  string  false  "Substring filter"
// @Param        category  query  string  false  "Substring filter"
// @Param        minPrice  query  number  false  "Minimum borrow price"
// @Param        maxPrice  query  number  false  "Maximum borrow price"
// @Success      200  {object}  ports.BookPage
// @Router       /books [get]
func (h *BookHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	filter := ports.BookFilter{
		Author:   c.QueryParam("author"),
		Category: c.QueryParam("category"),
		Page:     page,
		Limit:    limit,
	}
	if v := c.QueryParam("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		}
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		}
	}

	result, err := h.catalog.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get handles GET /books/:id.
func (h *BookHandler) Get(c echo.Context) error {
	book, err := h.catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

// Create handles POST /books.
func (h *BookHandler) Create(c echo.Context) error {
	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AvailableCopies > req.TotalCopies {
		return echo.NewHTTPError(http.StatusBadRequest, "availableCopies cannot exceed totalCopies")
	}

	book, err := h.catalog.Create(c.Request().Context(), ports.CreateBookInput{
		Name:            req.Name,
		Author:          req.Author,
		Category:        req.Category,
		Description:     req.Description,
		PublisherYear:   req.PublisherYear,
		Rating:          req.Rating,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		BorrowPrice:     req.BorrowPrice,
		Image:           req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, book)
}

// Update handles PUT /books/:id.
func (h *BookHandler) Update(c echo.Context) error {
	var req updateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.catalog.Update(c.Request().Context(), c.Param("id"), ports.UpdateBookInput{
		Name:            req.Name,
		Author:          req.Author,
		Category:        req.Category,
		Description:     req.Description,
		PublisherYear:   req.PublisherYear,
		Rating:          req.Rating,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		BorrowPrice:     req.BorrowPrice,
		Image:           req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /books/:id.
func (h *BookHandler) Delete(c echo.Context) error {
	if err := h.catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
