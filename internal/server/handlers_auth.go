package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

type simpleResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Operation successful"`
}

type tokenRequest struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"Abcdefg1"`
}

// Token godoc
// @Summary Exchange credentials for a session
// @Description Password grant against the identity provider. Failures are not counted here; clients report them to /auth/v1/failed-attempt.
// @Tags Identity
// @Accept json
// @Produce json
// @Param grant_type query string false "Only password is supported"
// @Param request body tokenRequest true "Credentials"
// @Success 200 {object} services.Session
// @Failure 400 {object} errorResponse
// @Failure 423 {object} lockedResponse
// @Router /auth/v1/token [post]
func (s *Server) Token(c echo.Context) error {
	if gt := c.QueryParam("grant_type"); gt != "" && gt != "password" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unsupported grant type"})
	}
	var req tokenRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Email and password are required"})
	}

	ctx := c.Request().Context()
	clientIP := utils.ClientIP(c.Request().Header)
	session, err := s.Identity.SignInWithPassword(ctx, req.Email, req.Password, clientIP)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.Limiter.Reset(ctx, clientIP+":"+session.User.Email, services.EndpointSignin); err != nil {
		s.Log.Warn(ctx, "failed to reset signin rate limit", "user_id", session.User.ID, "error", err)
	}
	return c.JSON(http.StatusOK, session)
}

// CurrentUser godoc
// @Summary Current identity
// @Tags Identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "User"
// @Failure 401 {object} simpleResponse
// @Router /auth/v1/user [get]
func (s *Server) CurrentUser(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"user": currentUser(c)})
}

// Logout godoc
// @Summary User logout
// @Description Logout user and invalidate session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} simpleResponse
// @Failure 401 {object} simpleResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	if err := s.Identity.SignOut(c.Request().Context(), token); err != nil {
		s.Log.Warn(c.Request().Context(), "logout failed", "user_id", currentUser(c).ID, "error", err)
		return c.JSON(http.StatusInternalServerError, simpleResponse{Success: false, Message: "Failed to logout."})
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Logged out successfully."})
}

// GetProfile godoc
// @Summary Get user profile
// @Description Get current user profile information
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "User profile"
// @Failure 401 {object} simpleResponse
// @Router /auth/profile [get]
func (s *Server) GetProfile(c echo.Context) error {
	user := currentUser(c)
	tz := user.TimezoneOrUTC()

	localTime, err := s.Timezone.ConvertFromUTC(s.now().UTC(), tz)
	if err != nil {
		localTime = s.now().UTC()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":            user.ID,
			"email":         user.Email,
			"role":          user.Role,
			"phone_number":  user.PhoneNumber,
			"timezone":      tz,
			"local_date":    s.Timezone.CurrentUserDate(tz),
			"local_time":    localTime.Format(time.RFC3339),
			"last_login_at": user.LastLoginAt,
			"created_at":    user.CreatedAt,
		},
	})
}

type updateTimezoneRequest struct {
	Timezone string `json:"timezone" example:"America/Los_Angeles" binding:"required"`
}

// UpdateTimezone godoc
// @Summary Update user timezone
// @Description Update user's timezone preference
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateTimezoneRequest true "Timezone update data"
// @Success 200 {object} simpleResponse
// @Failure 400 {object} simpleResponse
// @Failure 401 {object} simpleResponse
// @Router /auth/timezone [put]
func (s *Server) UpdateTimezone(c echo.Context) error {
	var req updateTimezoneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, simpleResponse{Success: false, Message: "Invalid payload"})
	}
	if req.Timezone == "" {
		return c.JSON(http.StatusBadRequest, simpleResponse{Success: false, Message: "Timezone is required"})
	}

	user := currentUser(c)
	if err := s.Identity.UpdateTimezone(c.Request().Context(), user.ID, req.Timezone); err != nil {
		if msg, ok := validationMessage(err); ok {
			return c.JSON(http.StatusBadRequest, simpleResponse{Success: false, Message: msg})
		}
		return c.JSON(http.StatusInternalServerError, simpleResponse{Success: false, Message: "Failed to update timezone"})
	}

	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Timezone updated successfully"})
}
