package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/watchvibe/auth-service/internal/transport/http/middleware"
	"github.com/watchvibe/auth-service/internal/usecase"
)

// AuthHandler exposes the session lifecycle endpoints: two-phase login,
// OTP confirmation, token refresh and logout.
type AuthHandler struct {
	auth    *usecase.AuthService
	cookies *CookieWriter
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, cookies *CookieWriter) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

// RegisterRoutes binds session routes, applying optional rate-limit middleware
// ahead of the login and OTP handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc, loginMiddlewares, otpMiddlewares []gin.HandlerFunc) {
	r.POST("/login", chain(loginMiddlewares, h.login)...)
	r.POST("/verify-otp", chain(otpMiddlewares, h.verifyOTP)...)
	r.POST("/refresh-token", h.refresh)
	r.POST("/logout", authMiddleware, h.logout)
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := append([]gin.HandlerFunc{}, middlewares...)
	return append(out, handler)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "Please fill all required fields")
		return
	}

	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		RespondError(c, http.StatusBadRequest, "Please provide either username or email")
		return
	}

	err := h.auth.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		var wrongMethod *usecase.WrongLoginMethodError
		if errors.As(err, &wrongMethod) {
			RespondError(c, http.StatusBadRequest, wrongMethod.Error())
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found. Please check your credentials"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid user credentials"},
		}, http.StatusInternalServerError, "Failed to log in")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "OTP sent successfully")
}

func (h *AuthHandler) verifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "OTP is required")
		return
	}

	result, err := h.auth.VerifyOTP(c.Request.Context(), req.OTP)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidOTP, Status: http.StatusUnauthorized, Message: "Invalid OTP"},
			{Err: usecase.ErrOTPExpired, Status: http.StatusUnauthorized, Message: "OTP has expired. Please request a new one"},
		}, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	h.cookies.SetSession(c, result.Tokens)

	Respond(c, http.StatusOK, SessionData{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (h *AuthHandler) refresh(c *gin.Context) {
	presented := refreshTokenFromRequest(c)
	if presented == "" {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request: Refresh token is missing")
		return
	}

	tokens, err := h.auth.RefreshAccessToken(c.Request.Context(), presented)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "Invalid refresh token: User not found"},
			{Err: usecase.ErrExpiredRefreshToken, Status: http.StatusUnauthorized, Message: "Refresh token is expired or used"},
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "Invalid refresh token"},
		}, http.StatusInternalServerError, "Failed to refresh access token")
		return
	}

	h.cookies.SetSession(c, *tokens)

	Respond(c, http.StatusOK, TokenPairData{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

func (h *AuthHandler) logout(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), userID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "User does not exist"},
		}, http.StatusInternalServerError, "Failed to log out")
		return
	}

	h.cookies.Clear(c)

	Respond(c, http.StatusOK, gin.H{}, "User logged Out")
}

func refreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}

	return strings.TrimSpace(req.RefreshToken)
}
