package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DashboardStats godoc
// @Summary Get user dashboard statistics
// @Description Entry totals, entries by source, distinct days and the current daily streak in the user's timezone
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Dashboard statistics"
// @Failure 401 {object} simpleResponse
// @Failure 500 {object} errorResponse
// @Router /dashboard/stats [get]
func (s *Server) DashboardStats(c echo.Context) error {
	stats, err := s.Journal.Stats(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}
