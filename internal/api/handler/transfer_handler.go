package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-system/internal/api/metrics"
	"github.com/openshelf/library-system/internal/core/ports"
)

// TransferHandler serves bulk spreadsheet export and import under
// /data/:type.
type TransferHandler struct {
	transfers ports.TransferService
}

func NewTransferHandler(transfers ports.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type importResponse struct {
	Imported int `json:"imported"`
}

// Export handles GET /data/:type/export.
//
// @Summary      Export a collection as a spreadsheet
// @Tags         transfer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        type  path  string  true  "Collection"  Enums(users, admins, books, borrowers)
// @Success      200  {file}    file
// @Failure      400  {object}  map[string]string
// @Router       /data/{type}/export [get]
func (h *TransferHandler) Export(c echo.Context) error {
	t := ports.TransferType(c.Param("type"))

	result, err := h.transfers.Export(c.Request().Context(), t)
	if err != nil {
		return err
	}

	metrics.TransferRowsTotal.WithLabelValues("export", string(t)).Inc()
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, result.Filename))
	return c.Blob(http.StatusOK, result.ContentType, result.Data)
}

// ExportFixed returns an Export handler bound to one collection, for
// the /admin/{users,admins}/export routes.
func (h *TransferHandler) ExportFixed(t ports.TransferType) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := h.transfers.Export(c.Request().Context(), t)
		if err != nil {
			return err
		}

		metrics.TransferRowsTotal.WithLabelValues("export", string(t)).Inc()
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename=%q`, result.Filename))
		return c.Blob(http.StatusOK, result.ContentType, result.Data)
	}
}

// Import handles POST /data/:type/import. The spreadsheet arrives as a
// multipart file under the "file" field. Import is fail-the-batch: one
// malformed row aborts the whole upload.
func (h *TransferHandler) Import(c echo.Context) error {
	t := ports.TransferType(c.Param("type"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "spreadsheet file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	count, err := h.transfers.Import(c.Request().Context(), t, src)
	if err != nil {
		return err
	}

	metrics.TransferRowsTotal.WithLabelValues("import", string(t)).Add(float64(count))
	return c.JSON(http.StatusOK, importResponse{Imported: count})
}
