package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/models"
)

// JWTMiddleware validates the bearer token against the stored session and
// sets user context
func (s *Server) JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, simpleResponse{Success: false, Message: "Authorization header required"})
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return c.JSON(http.StatusUnauthorized, simpleResponse{Success: false, Message: "Invalid authorization header format"})
			}

			user, err := s.Identity.User(c.Request().Context(), tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, simpleResponse{Success: false, Message: "Invalid or expired token"})
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("user_email", user.Email)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}

// AdminMiddleware checks if the user has admin privileges
func (s *Server) AdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*models.User)
			if !ok || user.Role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, simpleResponse{Success: false, Message: "Admin access required"})
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func currentUser(c echo.Context) *models.User {
	return c.Get("user").(*models.User)
}
