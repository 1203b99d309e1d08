package api

import (
	"errors"
	"net/http"

	"shapeup/internal/apperr"
	"shapeup/internal/logger"

	"github.com/gin-gonic/gin"
)

// WriteError renders err as JSON. Coded errors keep their message and status;
// anything else becomes an opaque 500. Only server-side failures are logged.
func WriteError(c *gin.Context, err error) {
	status, body := Describe(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
		)
	}
	c.JSON(status, body)
}

func Describe(err error) (int, ErrorResponse) {
	var coded apperr.Coded
	if errors.As(err, &coded) {
		return coded.HTTPStatus(), ErrorResponse{
			Error:     coded.Error(),
			Code:      coded.ErrorCode(),
			Retryable: apperr.IsRetryable(err),
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  "INTERNAL_ERROR",
	}
}
