package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

type rateLimitInfo struct {
	Attempts    int `json:"attempts" example:"1"`
	MaxAttempts int `json:"max_attempts" example:"5"`
}

type signinPassedResponse struct {
	ValidationPassed bool          `json:"validation_passed" example:"true"`
	Message          string        `json:"message" example:"Validation passed. Proceed with authentication."`
	RateLimit        rateLimitInfo `json:"rate_limit"`
}

type signupData struct {
	User any `json:"user"`
}

type signupResponse struct {
	Data      signupData    `json:"data"`
	RateLimit rateLimitInfo `json:"rate_limit"`
}

// AuthSecurity godoc
// @Summary Sign-in / sign-up pre-flight
// @Description Validates input, applies rate limiting and lockout, and on signup creates the account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body services.PreflightRequest true "Pre-flight request"
// @Success 200 {object} signinPassedResponse
// @Failure 400 {object} errorResponse
// @Failure 423 {object} lockedResponse
// @Failure 429 {object} rateLimitedResponse
// @Failure 500 {object} errorResponse
// @Router /auth-security [post]
func (s *Server) AuthSecurity(c echo.Context) (err error) {
	ctx := c.Request().Context()
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error(ctx, "auth gateway panic", "panic", r)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
		}
	}()

	var req services.PreflightRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}

	res, err := s.Gateway.Preflight(ctx, req, utils.ClientIP(c.Request().Header))
	if err != nil {
		return s.writeError(c, err)
	}

	rl := rateLimitInfo{Attempts: res.RateLimit.Attempts, MaxAttempts: res.RateLimit.MaxAttempts}
	if res.Account != nil {
		return c.JSON(http.StatusOK, signupResponse{Data: signupData{User: res.Account}, RateLimit: rl})
	}
	return c.JSON(http.StatusOK, signinPassedResponse{ValidationPassed: res.ValidationPassed, Message: res.Message, RateLimit: rl})
}

type failedAttemptRequest struct {
	Email string `json:"email" example:"jane@example.com"`
}

type failedAttemptResponse struct {
	Recorded bool `json:"recorded"`
	services.LockStatus
}

// FailedAttempt godoc
// @Summary Record a failed credential check
// @Description Called by clients after the identity provider rejected a sign-in. Feeds account lockout.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body failedAttemptRequest true "Failed attempt"
// @Success 200 {object} failedAttemptResponse
// @Failure 400 {object} errorResponse
// @Failure 429 {object} rateLimitedResponse
// @Router /auth/v1/failed-attempt [post]
func (s *Server) FailedAttempt(c echo.Context) error {
	var req failedAttemptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	ctx := c.Request().Context()
	clientIP := utils.ClientIP(c.Request().Header)
	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid email address format"})
	}

	// one report per sign-in the same client could have made
	identifier := clientIP + ":" + email
	rl, err := s.Limiter.Check(ctx, identifier, services.EndpointFailedAttempt, s.Cfg.SigninMaxAttempts, s.Cfg.RateLimitWindow)
	if err != nil {
		return s.writeError(c, err)
	}
	if !rl.Allowed {
		s.Events.Log(ctx, models.EventRateLimitExceeded, identifier, map[string]any{
			"endpoint":      services.EndpointFailedAttempt,
			"attempts":      rl.Attempts,
			"max_attempts":  rl.MaxAttempts,
			"blocked_until": rl.BlockedUntil,
		}, models.SeverityMedium)
		return s.writeError(c, &services.RateLimitError{BlockedUntil: *rl.BlockedUntil})
	}

	status, err := s.Failures.RecordFailedSignin(ctx, email, clientIP)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, failedAttemptResponse{Recorded: true, LockStatus: status})
}
