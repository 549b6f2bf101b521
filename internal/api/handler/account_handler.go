package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
	"github.com/openshelf/library-system/internal/infrastructure/storage"
)

// AccountHandler serves admin-side account CRUD. One instance is mounted
// per collection: /admin/users with RoleUser and /admin/admins with
// RoleAdmin.
type AccountHandler struct {
	accounts ports.AccountService
	images   *storage.ImageStore
	role     domain.Role
}

func NewAccountHandler(accounts ports.AccountService, images *storage.ImageStore, role domain.Role) *AccountHandler {
	return &AccountHandler{accounts: accounts, images: images, role: role}
}

type createAccountRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type updateAccountRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// List handles GET /admin/{users,admins}.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int     false  "Page number (1-based)"
// @Param        limit  query  int     false  "Page size"
// @Param        name   query  string  false  "Substring filter"
// @Param        email  query  string  false  "Substring filter"
// @Success      200  {object}  ports.AccountPage
// @Router       /admin/users [get]
func (h *AccountHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	filter := ports.AccountFilter{
		Name:    c.QueryParam("name"),
		Email:   c.QueryParam("email"),
		Phone:   c.QueryParam("phone"),
		Address: c.QueryParam("address"),
		Page:    page,
		Limit:   limit,
	}

	result, err := h.accounts.List(c.Request().Context(), h.role, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get handles GET /admin/{users,admins}/:id.
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.accounts.Get(c.Request().Context(), h.role, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Create handles POST /admin/{users,admins}.
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.accounts.Create(c.Request().Context(), h.role, ports.CreateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, account)
}

// Update handles PUT /admin/{users,admins}/:id.
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.accounts.Update(c.Request().Context(), h.role, c.Param("id"), ports.UpdateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Delete handles DELETE /admin/{users,admins}/:id.
func (h *AccountHandler) Delete(c echo.Context) error {
	if err := h.accounts.Delete(c.Request().Context(), h.role, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Ban handles PUT /admin/{users,admins}/:id/ban.
func (h *AccountHandler) Ban(c echo.Context) error {
	account, err := h.accounts.Ban(c.Request().Context(), h.role, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Restore handles PUT /admin/{users,admins}/:id/restore.
func (h *AccountHandler) Restore(c echo.Context) error {
	account, err := h.accounts.Restore(c.Request().Context(), h.role, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// SetImage handles PUT /admin/{users,admins}/:id/image. The avatar
// arrives as a multipart file under the "image" field.
func (h *AccountHandler) SetImage(c echo.Context) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read image file")
	}
	defer src.Close()

	path, err := h.images.Save(fileHeader.Filename, src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.accounts.SetImage(c.Request().Context(), h.role, c.Param("id"), path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}
