package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/techxchange-golang/internal/identity"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterUserInput is what a prospective customer submits. There is no
// password: one is generated when an admin activates the account.
type RegisterUserInput struct {
	FullName         string `json:"fullName" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	PhoneNumber      string `json:"phoneNumber"`
	Location         string `json:"location"`
	BusinessName     string `json:"businessName"`
	BusinessType     string `json:"businessType"`
	DealingWith      string `json:"dealingWith"`
	BusinessLocation string `json:"businessLocation"`
}

// Register is the handler for POST /v1/register.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Create the inactive account ---
	user, err := h.Identity.Register(c.Request.Context(), identity.RegisterInput{
		Name:             input.FullName,
		Email:            input.Email,
		PhoneNumber:      input.PhoneNumber,
		Location:         input.Location,
		BusinessName:     input.BusinessName,
		BusinessType:     input.BusinessType,
		DealingWith:      input.DealingWith,
		BusinessLocation: input.BusinessLocation,
	})
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	case errors.Is(err, identity.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	case err != nil:
		h.serverError(c, "Failed to register user", err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Your account is pending admin approval.",
		"user":    user,
	})
}

// --- Login / Logout ---

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.Identity.Login(c.Request.Context(), input.Email, input.Password)
	switch {
	case errors.Is(err, identity.ErrInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is pending admin approval"})
		return
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	case err != nil:
		h.serverError(c, "Failed to log in", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout is the handler for POST /v1/logout. Every token issued to the
// user so far stops working.
func (h *Handlers) Logout(c *gin.Context) {
	user := currentUser(c)
	if err := h.Identity.Logout(c.Request.Context(), user.ID); err != nil {
		h.serverError(c, "Failed to log out", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// --- Password Reset ---

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword is the handler for POST /v1/auth/forgot-password.
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Identity.ForgotPassword(c.Request.Context(), input.Email)
	switch {
	case errors.Is(err, identity.ErrUnknownEmail):
		c.JSON(http.StatusNotFound, gin.H{"error": "No account found with this email"})
		return
	case err != nil:
		h.serverError(c, "Failed to send reset email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A password reset link has been sent to your email"})
}

type ResetPasswordInput struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ResetPassword is the handler for POST /v1/auth/reset-password/:uidb64/:token.
func (h *Handlers) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Identity.ResetPassword(c.Request.Context(), c.Param("uidb64"), c.Param("token"), input.Password, input.ConfirmPassword)
	if err != nil {
		if status, msg, ok := passwordError(err); ok {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		h.serverError(c, "Failed to reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset. You can now log in"})
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ChangePassword is the handler for POST /v1/profile/password.
func (h *Handlers) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	err := h.Identity.ChangePassword(c.Request.Context(), user.ID, input.CurrentPassword, input.NewPassword, input.ConfirmPassword)
	if err != nil {
		if status, msg, ok := passwordError(err); ok {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		h.serverError(c, "Failed to change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// passwordError maps the validation errors of password changes.
func passwordError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, identity.ErrPasswordMismatch):
		return http.StatusBadRequest, "Passwords do not match", true
	case errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 8 characters", true
	case errors.Is(err, identity.ErrWrongPassword):
		return http.StatusBadRequest, "Current password is incorrect", true
	case errors.Is(err, identity.ErrInvalidResetLink):
		return http.StatusBadRequest, "The reset link is invalid or has expired", true
	}
	return 0, "", false
}
