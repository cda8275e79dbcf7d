package handlers

import (
	"github.com/creatorclub/backend/internal/middleware"
	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communities *services.CommunityService
	membership  *services.MembershipService
	join        *services.JoinService
	checkout    *services.CheckoutService
	auth        *services.AuthService
}

func NewCommunityHandler(communities *services.CommunityService, membership *services.MembershipService, join *services.JoinService, checkout *services.CheckoutService, auth *services.AuthService) *CommunityHandler {
	return &CommunityHandler{
		communities: communities,
		membership:  membership,
		join:        join,
		checkout:    checkout,
		auth:        auth,
	}
}

// List communities
// GET /api/communities
func (h *CommunityHandler) List(c *gin.Context) {
	var req services.CommunityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.communities.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID
// GET /api/communities/:id
func (h *CommunityHandler) GetByID(c *gin.Context) {
	community, err := h.communities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, community)
}

// Create a community owned by the caller
// POST /api/communities
func (h *CommunityHandler) Create(c *gin.Context) {
	var req services.CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	creator, err := h.auth.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	community, err := h.communities.Create(c.Request.Context(), creator, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, community)
}

// UpdatePricing
// PUT /api/communities/:id/pricing
func (h *CommunityHandler) UpdatePricing(c *gin.Context) {
	var req services.UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	community, err := h.communities.UpdatePricing(c.Request.Context(), middleware.GetUserID(c), currentRole(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, community)
}

// Membership reports the caller's relation to the community
// GET /api/communities/:id/membership
func (h *CommunityHandler) Membership(c *gin.Context) {
	communityID := c.Param("id")
	userID := middleware.GetUserID(c)

	status := h.membership.Status(c.Request.Context(), userID, communityID)
	if status == services.StatusUnknown {
		respondError(c, &services.JoinError{Code: services.JoinErrDatabase, Message: "could not check membership, please retry", Retryable: true})
		return
	}
	response.Success(c, gin.H{
		"community_id":  communityID,
		"status":        status,
		"authenticated": userID != "",
	})
}

// Join runs the join action for the caller, anonymous visitors included
// POST /api/communities/:id/join
func (h *CommunityHandler) Join(c *gin.Context) {
	outcome, err := h.join.Join(c.Request.Context(), services.JoinRequest{
		UserID:      middleware.GetUserID(c),
		CommunityID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, outcome)
}

// CheckoutReturn re-checks membership after the provider redirects back
// GET /api/communities/:id/checkout/return
func (h *CommunityHandler) CheckoutReturn(c *gin.Context) {
	ret, err := h.checkout.ReturnStatus(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, ret)
}

// Mine lists the communities the caller belongs to
// GET /api/me/communities
func (h *CommunityHandler) Mine(c *gin.Context) {
	items, err := h.membership.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
