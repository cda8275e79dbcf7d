package handlers

import (
	"errors"
	"net/http"

	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the JSON envelope.
func respondError(c *gin.Context, err error) {
	var joinErr *services.JoinError
	switch {
	case errors.As(err, &joinErr):
		c.JSON(joinErr.HTTPStatus(), response.Response{
			Message: joinErr.Message,
			Error:   joinErr.Code,
			Data:    gin.H{"retryable": joinErr.Retryable},
		})
	case errors.Is(err, services.ErrCommunityNotFound):
		response.NotFound(c, "community not found")
	case errors.Is(err, services.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, services.ErrForbidden):
		response.Forbidden(c, "you are not allowed to do this")
	default:
		var appErr *response.AppError
		if !errors.As(err, &appErr) {
			logger.Error().Err(err).
				Str("request_id", c.GetString(logger.ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Msg("Request failed")
		}
		response.Error(c, err)
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Response{Message: err.Error(), Error: response.CodeBadRequest})
}
