package response

import (
	"net/http"

	"github.com/Jawfish/klink/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error writes the fixed status and detail for err's kind. The error
// itself only goes to the log.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status, detail := kind.Status()

	fields := []zap.Field{
		zap.String("kind", kind.String()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Info("Request rejected", fields...)
	}

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
