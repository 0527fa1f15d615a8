package api

import (
	"bitwise74/account-api/pkg/apperr"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail writes err as a JSON error response. Typed failures keep their status
// and message, anything else is logged and hidden behind a 500.
func fail(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	if ae, ok := apperr.As(err); ok {
		c.AbortWithStatusJSON(ae.Status, gin.H{
			"error":     ae.Message,
			"requestID": requestID,
		})

		if ae.Status >= http.StatusInternalServerError {
			zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
}

func badBody(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Request body size exceeds limit",
			"requestID": requestID,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"requestID": requestID,
	})

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
}
