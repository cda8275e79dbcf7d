package handlers

import (
	"github.com/creatorclub/backend/internal/middleware"
	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get
// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, p)
}

// Update
// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, err := h.profiles.Update(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, p)
}
