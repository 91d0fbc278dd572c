package integrity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	checker *Checker
}

func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/integrity", h.Scan)
	admin.POST("/integrity/repair", h.Repair)
}

func (h *Handler) Scan(c echo.Context) error {
	report, err := h.checker.Scan(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// Repair accepts ?dry_run=true to preview the fixes.
func (h *Handler) Repair(c echo.Context) error {
	dryRun := false
	if v := c.QueryParam("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dry_run must be a boolean")
		}
		dryRun = parsed
	}
	report, err := h.checker.Repair(c.Request().Context(), dryRun)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
