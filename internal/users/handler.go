package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-roast/internal/shared/server/middleware"
	"resume-roast/internal/shared/server/respond"
	"resume-roast/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// Touch upserts the caller into the directory. Failures are logged and the
// request continues.
func (h *Handler) Touch() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if h.Svc != nil && userID != "" {
			err := h.Svc.Touch(c.Request.Context(), userID, middleware.UserEmailFromContext(c), middleware.UserNameFromContext(c))
			if err != nil {
				telemetry.Warn("users.touch_failed", map[string]any{
					"request_id": middleware.RequestIDFromContext(c),
					"user_id":    userID,
					"error":      err.Error(),
				})
			}
		}
		c.Next()
	}
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"lastLogin": user.LastLogin,
	})
}
