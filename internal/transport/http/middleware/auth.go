package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/usecase"
)

const accessTokenCookie = "accessToken"

// errorEnvelope mirrors the handlers.APIResponse shape; duplicated here to
// avoid an import cycle with the handlers package.
type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func abortWithEnvelope(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		StatusCode: status,
		Message:    message,
	})
}

// RequireAuth validates the access token from the Authorization header or the
// accessToken cookie and stores the authenticated user on the context.
func RequireAuth(authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFromRequest(c)
		if token == "" {
			abortWithEnvelope(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := authService.ParseAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken):
				abortWithEnvelope(c, http.StatusUnauthorized, "Access token expired")
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				abortWithEnvelope(c, http.StatusUnauthorized, "Invalid access token")
			default:
				abortWithEnvelope(c, http.StatusInternalServerError, "Authentication failed")
			}
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set("claims", claims)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.Subject
		}

		c.Next()
	}
}

// RequireRole checks the authenticated user holds any of the given roles.
// Roles are not embedded in the access token, so the user record is loaded.
func RequireRole(users *usecase.UserService, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetAuthenticatedUserID(c)
		if !ok {
			abortWithEnvelope(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, usecase.ErrUserNotFound) {
				abortWithEnvelope(c, http.StatusUnauthorized, "User does not exist")
				return
			}
			abortWithEnvelope(c, http.StatusInternalServerError, "Authorization failed")
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		abortWithEnvelope(c, http.StatusForbidden, "Insufficient permissions")
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}

func accessTokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}
