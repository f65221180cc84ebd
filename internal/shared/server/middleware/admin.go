package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-roast/internal/shared/server/respond"
)

// RequireAdmin admits only the configured admin identity, matched by email
// case-insensitively. An empty adminEmail locks the admin surface entirely.
func RequireAdmin(adminEmail string) gin.HandlerFunc {
	adminEmail = strings.TrimSpace(adminEmail)
	return func(c *gin.Context) {
		email := strings.TrimSpace(UserEmailFromContext(c))
		if adminEmail == "" || email == "" || !strings.EqualFold(email, adminEmail) {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
			return
		}
		c.Next()
	}
}
