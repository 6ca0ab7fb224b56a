package handlers

import (
	"context"
	"net/http"
	"time"

	"blogapi/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// requestContext bounds every store call made on behalf of one request.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// respondError writes a service error. Causes of store failures are logged,
// never sent.
func respondError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	kind := services.KindOf(err)
	if kind == services.KindStoreFailure {
		logger.Errorw("Request failed", "path", c.FullPath(), "error", err)
	}
	fail(c, statusOf(kind), services.MessageOf(err))
}

func badJSON(c *gin.Context) {
	fail(c, http.StatusBadRequest, "invalid request body")
}
