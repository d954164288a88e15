package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"voltprep/internal/middleware"
	"voltprep/internal/services"
)

type AuthHandler struct {
	accounts    *services.AccountService
	oauthConfig *oauth2.Config
	siteURL     string
}

func NewAuthHandler(accounts *services.AccountService, oauthConfig *oauth2.Config, siteURL string) *AuthHandler {
	return &AuthHandler{accounts: accounts, oauthConfig: oauthConfig, siteURL: siteURL}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) startSession(c *gin.Context, userID string) bool {
	if err := middleware.Login(c, userID); err != nil {
		log.Printf("save session for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}
	return true
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), in)
	if errors.Is(err, services.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.startSession(c, user.ID) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "emailVerified": user.EmailVerified})
}

// Login POST /auth/login，账号不存在和密码错误返回同样的信息
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.startSession(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "emailVerified": user.EmailVerified})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.Logout(c); err != nil {
		log.Printf("clear session: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// VerifyEmail GET /auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.accounts.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// ResendVerification POST /auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	if err := h.accounts.ResendVerification(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ForgotPassword POST /auth/forgot-password，不暴露邮箱是否注册
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "If an account exists for that email, a reset link has been sent."})
}

// ResetPassword POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}
