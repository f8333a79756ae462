package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"huddle/internal/apperr"
)

// fail writes the error response for a mutation. Taxonomy errors surface
// their message verbatim with the mapped status; anything else is logged
// and collapsed into a generic 500 so internals never leak to clients.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	if apperr.IsExpected(err) {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
