package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/transport/http/middleware"
	"github.com/watchvibe/auth-service/internal/usecase"
)

// UserHandler exposes account endpoints: registration, email verification,
// profile reads and updates, password flows and role assignment.
type UserHandler struct {
	registration *usecase.RegistrationService
	passwords    *usecase.PasswordService
	users        *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(registration *usecase.RegistrationService, passwords *usecase.PasswordService, users *usecase.UserService) *UserHandler {
	return &UserHandler{registration: registration, passwords: passwords, users: users}
}

// RegisterRoutes binds account routes. The admin middleware guards role
// assignment; rate-limit middleware applies to the unauthenticated
// registration and password-reset entry points.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc, registerMiddlewares, resetMiddlewares []gin.HandlerFunc) {
	r.POST("/register", chain(registerMiddlewares, h.register)...)
	r.GET("/verify-email/:token", h.verifyEmail)
	r.POST("/resend-verification", authMiddleware, h.resendVerification)

	r.GET("/current-user", authMiddleware, h.currentUser)
	r.PATCH("/update-account", authMiddleware, h.updateAccount)

	r.POST("/change-password", authMiddleware, h.changePassword)
	r.POST("/forgot-password", chain(resetMiddlewares, h.forgotPassword)...)
	r.POST("/reset-password", h.resetPassword)

	r.POST("/assign-role/:id", authMiddleware, adminMiddleware, h.assignRole)
}

func (h *UserHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	input := usecase.RegisterInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		AvatarURL: req.Avatar,
	}
	if cover := strings.TrimSpace(req.CoverImage); cover != "" {
		input.CoverImageURL = &cover
	}
	if role := strings.TrimSpace(req.Role); role != "" {
		input.Role = domain.Role(strings.ToUpper(role))
	}

	user, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserExists, Status: http.StatusConflict, Message: "User with email or username already exists"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "Password does not meet requirements"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "Invalid user role"},
		}, http.StatusInternalServerError, "Something went wrong while registering the user")
		return
	}

	Respond(c, http.StatusCreated, user, "User registered successfully")
}

func (h *UserHandler) verifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		RespondError(c, http.StatusBadRequest, "Email verification token is missing")
		return
	}

	if _, err := h.registration.VerifyEmail(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationTokenInvalid, Status: http.StatusBadRequest, Message: "Token is invalid or expired"},
		}, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	Respond(c, http.StatusOK, gin.H{"isEmailVerified": true}, "Email is verified")
}

func (h *UserHandler) resendVerification(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.registration.ResendEmailVerification(c.Request.Context(), userID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User does not exist"},
			{Err: usecase.ErrEmailAlreadyVerified, Status: http.StatusConflict, Message: "Email is already verified!"},
		}, http.StatusInternalServerError, "Failed to resend verification email")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "Mail has been sent to your mail ID")
}

func (h *UserHandler) currentUser(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	user, err := h.users.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User does not exist"},
		}, http.StatusInternalServerError, "Failed to fetch current user")
		return
	}

	Respond(c, http.StatusOK, user, "Current user fetched successfully")
}

func (h *UserHandler) updateAccount(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := h.users.UpdateAccountDetails(c.Request.Context(), userID, req.FullName, req.Email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User does not exist"},
			{Err: usecase.ErrUserExists, Status: http.StatusConflict, Message: "User with email or username already exists"},
		}, http.StatusInternalServerError, "Failed to update account details")
		return
	}

	Respond(c, http.StatusOK, user, "Account details updated successfully")
}

func (h *UserHandler) changePassword(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	err := h.passwords.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidOldPassword, Status: http.StatusBadRequest, Message: "Invalid old password"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User does not exist"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "Password does not meet requirements"},
		}, http.StatusInternalServerError, "Failed to change password")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (h *UserHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.passwords.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found"},
		}, http.StatusInternalServerError, "Failed to send password reset OTP")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "OTP sent successfully for password reset")
}

func (h *UserHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "Email and OTP are required")
		return
	}

	err := h.passwords.ResetPasswordWithOTP(c.Request.Context(), req.OTP, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidOTP, Status: http.StatusUnauthorized, Message: "Invalid OTP"},
			{Err: usecase.ErrOTPExpired, Status: http.StatusUnauthorized, Message: "OTP has expired. Please request a new one"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "Password does not meet requirements"},
		}, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "Password reset successfully")
}

func (h *UserHandler) assignRole(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		RespondError(c, http.StatusBadRequest, "User id is required")
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "Role is required")
		return
	}

	role := domain.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	err := h.users.AssignRole(c.Request.Context(), actorID, targetID, role)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "Invalid role"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User does not exist"},
		}, http.StatusInternalServerError, "Failed to change role")
		return
	}

	Respond(c, http.StatusOK, gin.H{}, "Role changed for the user")
}
