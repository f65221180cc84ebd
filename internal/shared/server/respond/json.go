package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes a 200 JSON payload. Responses are per-user, so caches must not
// keep them.
func OK(c *gin.Context, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, payload)
}
