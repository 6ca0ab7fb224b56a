package handlers

import (
	"context"
	"net/http"

	"blogapi/models"
	"blogapi/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.SignupResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	Stats(ctx context.Context) (models.UserStats, error)
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type AuthHandler struct {
	accounts AccountService
	logger   *zap.SugaredLogger
}

func NewAuthHandler(accounts AccountService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "name, a valid email and a password of 6 to 72 characters are required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.accounts.Signup(ctx, services.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := gin.H{"id": res.User.ID, "name": res.User.Name, "email": res.User.Email}
	if !res.EmailSent {
		c.JSON(http.StatusCreated, gin.H{
			"status":  "warning",
			"message": "Account created but verification email could not be sent. Please contact support.",
			"user":    user,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.accounts.VerifyEmail(ctx, c.Param("token")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Email verified successfully"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "a valid email is required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.accounts.ForgotPassword(ctx, req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password reset link sent to your email"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "password must be 6 to 72 characters")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.accounts.ResetPassword(ctx, c.Param("token"), req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password reset successful"})
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.accounts.ListUsers(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "data": users})
}

func (h *AuthHandler) Stats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.accounts.Stats(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}
