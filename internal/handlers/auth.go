package handlers

import (
	"errors"

	"github.com/creatorclub/backend/internal/middleware"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	joinService *services.JoinService
}

func NewAuthHandler(auth *services.AuthService, join *services.JoinService) *AuthHandler {
	return &AuthHandler{authService: auth, joinService: join}
}

// AuthResponse is returned by register and login. When next carried a join
// intent, Join holds the outcome of joining on the user's behalf.
type AuthResponse struct {
	Token            string                `json:"token"`
	ExpiresAt        int64                 `json:"expires_at"`
	RefreshToken     string                `json:"refresh_token"`
	RefreshExpiresAt int64                 `json:"refresh_expires_at"`
	User             *services.Profile     `json:"user"`
	Next             string                `json:"next,omitempty"`
	Join             *services.JoinOutcome `json:"join,omitempty"`
	JoinError        *JoinErrorBody        `json:"join_error,omitempty"`
}

type JoinErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, h.authResponse(c, res, req.Next))
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, h.authResponse(c, res, req.Next))
}

func (h *AuthHandler) authResponse(c *gin.Context, res *services.LoginResult, next string) *AuthResponse {
	out := &AuthResponse{
		Token:            res.AccessToken,
		ExpiresAt:        res.AccessExpireAt.Unix(),
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpireAt.Unix(),
		User:             services.NewProfile(res.User),
	}
	if next == "" {
		return out
	}

	rp, err := services.ParseReturnPath(next)
	if err != nil {
		logger.Warn().Str("user_id", res.User.ID).Msg("[Auth] Ignoring unsafe return path")
		return out
	}
	out.Next = rp.Path
	if !rp.JoinIntent {
		return out
	}

	outcome, err := h.joinService.Join(c.Request.Context(), services.JoinRequest{
		UserID:      res.User.ID,
		CommunityID: rp.CommunityID,
	})
	if err != nil {
		var joinErr *services.JoinError
		if errors.As(err, &joinErr) {
			out.JoinError = &JoinErrorBody{Code: joinErr.Code, Message: joinErr.Message, Retryable: joinErr.Retryable}
		} else {
			out.JoinError = &JoinErrorBody{Code: services.JoinErrDatabase, Message: "could not join community", Retryable: true}
		}
		out.Next = services.CommunityPath(rp.CommunityID)
		return out
	}
	out.Join = outcome
	if outcome.RedirectURL != "" {
		out.Next = outcome.RedirectURL
	}
	return out
}

// Refresh rotates the refresh token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":              res.AccessToken,
		"expires_at":         res.AccessExpireAt.Unix(),
		"refresh_token":      res.RefreshToken,
		"refresh_expires_at": res.RefreshExpireAt.Unix(),
	})
}

// Logout revokes the refresh token; the access token simply expires.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, services.NewProfile(user))
}

// ChangePassword
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

func currentRole(c *gin.Context) models.Role {
	role, err := models.ParseRole(middleware.GetRole(c))
	if err != nil {
		return models.RoleStudent
	}
	return role
}
