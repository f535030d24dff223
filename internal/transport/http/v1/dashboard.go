package v1

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DashboardStats returns aggregate case counts.
// GET /v1/dashboard/stats
func (h *Handler) DashboardStats(c echo.Context) error {
	stats, err := h.svc.DashboardStats(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to get dashboard stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get dashboard stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
