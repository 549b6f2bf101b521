package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/core/ports"
)

// ProfileHandler serves the authenticated account's self-service
// operations under /user/me.
type ProfileHandler struct {
	accounts ports.AccountService
}

func NewProfileHandler(accounts ports.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// UpdateMe handles PUT /user/me.
//
// @Summary      Update own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateAccountRequest  true  "Fields to update"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /user/me [put]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	accountID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.accounts.UpdateSelf(c.Request().Context(), accountID, ports.UpdateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// DeleteMe handles DELETE /user/me.
func (h *ProfileHandler) DeleteMe(c echo.Context) error {
	accountID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.accounts.DeleteSelf(c.Request().Context(), accountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
