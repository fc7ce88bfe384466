package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

// AdminSecurityEvents godoc
// @Summary List security events
// @Description Newest first, filtered by type, severity or identifier
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "Event type"
// @Param severity query string false "low, medium or high"
// @Param identifier query string false "Identifier (client address and email)"
// @Param limit query int false "Max events" default(100)
// @Success 200 {object} map[string]interface{} "Security events"
// @Failure 403 {object} simpleResponse
// @Router /admin/security-events [get]
func (s *Server) AdminSecurityEvents(c echo.Context) error {
	s.logAdminActivity(c, "security_events")

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := s.Events.List(c.Request().Context(), services.SecurityEventFilter{
		EventType:  c.QueryParam("type"),
		Severity:   c.QueryParam("severity"),
		Identifier: c.QueryParam("identifier"),
		Limit:      limit,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, simpleResponse{Success: false, Message: "Failed to fetch security events"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    events,
	})
}

type adminUserRow struct {
	models.User
	EntriesCount int64 `json:"entries_count"`
}

// AdminUsers godoc
// @Summary Get all users with entry counts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param search query string false "Search by email"
// @Param role query string false "Filter by role"
// @Success 200 {object} map[string]interface{} "List of users"
// @Failure 403 {object} simpleResponse
// @Router /admin/users [get]
func (s *Server) AdminUsers(c echo.Context) error {
	s.logAdminActivity(c, "users")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := s.DB.WithContext(c.Request().Context()).Model(&models.User{})
	if search := strings.ToLower(strings.TrimSpace(c.QueryParam("search"))); search != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+search+"%")
	}
	if role := c.QueryParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, simpleResponse{Success: false, Message: "Failed to fetch users"})
	}

	var users []adminUserRow
	err := query.Select(`users.*,
		(SELECT COUNT(*) FROM journal_entries WHERE journal_entries.user_id = users.id) AS entries_count`).
		Order("created_at DESC").Offset(offset).Limit(limit).Scan(&users).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, simpleResponse{Success: false, Message: "Failed to fetch users"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"users": users,
			"pagination": map[string]any{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": (total + int64(limit) - 1) / int64(limit),
			},
		},
	})
}

// logAdminActivity writes an audit event for admin reads.
func (s *Server) logAdminActivity(c echo.Context, resource string) {
	admin := currentUser(c)
	s.Events.Log(c.Request().Context(), models.EventAdminAccess, utils.ClientIP(c.Request().Header)+":"+admin.Email, map[string]any{
		"admin_id":   admin.ID,
		"resource":   resource,
		"user_agent": c.Request().UserAgent(),
	}, models.SeverityLow)
}
