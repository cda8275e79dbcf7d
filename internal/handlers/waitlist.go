package handlers

import (
	"net/http"

	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type WaitlistHandler struct {
	waitlist *services.WaitlistService
}

func NewWaitlistHandler(waitlist *services.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

var waitlistStatus = map[string]int{
	services.WaitlistErrInvalidEmail:    http.StatusBadRequest,
	services.WaitlistErrInvalidInterest: http.StatusBadRequest,
	services.WaitlistErrEmailExists:     http.StatusConflict,
	services.WaitlistErrNetwork:         http.StatusServiceUnavailable,
	services.WaitlistErrDatabase:        http.StatusInternalServerError,
	services.WaitlistErrUnknown:         http.StatusInternalServerError,
}

// Submit adds an email to the waitlist
// POST /api/waitlist
func (h *WaitlistHandler) Submit(c *gin.Context) {
	var sub services.WaitlistSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result := h.waitlist.Submit(c.Request.Context(), sub)
	if !result.Success {
		status, ok := waitlistStatus[result.Error]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, response.Response{Message: result.Message, Error: result.Error})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Success: true,
		Message: result.Message,
		Data:    result.Entry,
	})
}

// List entries for admins
// GET /api/admin/waitlist
func (h *WaitlistHandler) List(c *gin.Context) {
	var req services.WaitlistListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.waitlist.List(c.Request.Context(), &req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, resp)
}

// Stats counts entries per interest
// GET /api/admin/waitlist/stats
func (h *WaitlistHandler) Stats(c *gin.Context) {
	counts, err := h.waitlist.CountByInterest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"by_interest": counts})
}
