package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxClaims extracts the auth claims injected by the Auth middleware.
// An empty account id means the middleware did not run on this route.
func ctxClaims(c echo.Context) (accountID, role string, err error) {
	accountID, _ = c.Get("account_id").(string)
	role, _ = c.Get("role").(string)
	if accountID == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, role, nil
}

// pageParams reads the standard page/limit query parameters, leaving
// zero values for the service layer to normalize.
func pageParams(c echo.Context) (page, limit int) {
	page = atoiDefault(c.QueryParam("page"), 0)
	limit = atoiDefault(c.QueryParam("limit"), 0)
	return page, limit
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}
