package controllers

import (
	"net/http"
	"strconv"

	"agent-portal/apperrors"
	"agent-portal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError renders err with the status carried by an *apperrors.Error.
// Anything else is a 500 and gets logged with the request id.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	appErr := apperrors.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.WithRequest(c, log).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

func invalidRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

// parsePaginationParams reads offset/limit, accepting page as an alternative to offset.
func parsePaginationParams(c *gin.Context) (int, int) {
	const maxLimit = 100
	offset, limit := 0, 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	} else if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		offset = (p - 1) * limit
	}
	return offset, limit
}
