package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/watchvibe/auth-service/internal/core/domain"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// NewAPIResponse builds an envelope; success is derived from the status code.
func NewAPIResponse(statusCode int, data any, message string) APIResponse {
	return APIResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// NewErrorResponse builds a failure envelope with a nil data field.
func NewErrorResponse(statusCode int, message string) APIResponse {
	return NewAPIResponse(statusCode, nil, message)
}

// Respond writes a success envelope.
func Respond(c *gin.Context, statusCode int, data any, message string) {
	c.JSON(statusCode, NewAPIResponse(statusCode, data, message))
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, NewErrorResponse(statusCode, message))
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	FullName   string `json:"fullName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Avatar     string `json:"avatar" binding:"required"`
	CoverImage string `json:"coverImage"`
	Role       string `json:"role"`
}

// LoginRequest defines the first-phase login payload. Either email or
// username identifies the account.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest carries the one-time code confirming a login.
type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// RefreshRequest carries a refresh token when the cookie is absent.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest defines the authenticated password change payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ForgotPasswordRequest starts the OTP-based reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes the OTP-based reset flow.
type ResetPasswordRequest struct {
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateAccountRequest changes profile fields of the current user.
type UpdateAccountRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// AssignRoleRequest overwrites a user's role. Admin only.
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SessionData is returned once an OTP check succeeds.
type SessionData struct {
	User         domain.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// TokenPairData is returned by the refresh endpoint.
type TokenPairData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
