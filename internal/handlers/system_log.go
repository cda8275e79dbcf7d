package handlers

import (
	"strconv"

	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
	retentionDays    int
}

func NewSystemLogHandler(logs *services.SystemLogService, retentionDays int) *SystemLogHandler {
	return &SystemLogHandler{systemLogService: logs, retentionDays: retentionDays}
}

func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.systemLogService.List(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *SystemLogHandler) GetModules(c *gin.Context) {
	modules, err := h.systemLogService.GetModules()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"modules": modules})
}

// Cleanup deletes logs older than ?days, defaulting to the configured retention.
func (h *SystemLogHandler) Cleanup(c *gin.Context) {
	days := h.retentionDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.BadRequest(c, "days must be a positive integer")
			return
		}
		days = n
	}

	deleted, err := h.systemLogService.CleanupOldLogs(days)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted, "days": days})
}
