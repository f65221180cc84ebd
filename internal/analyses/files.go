package analyses

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-roast/internal/shared/auth"
	"resume-roast/internal/shared/server/respond"
	"resume-roast/internal/shared/storage/object"
)

// FileHandler serves stored resumes behind signed, expiring links. The link
// token is the credential, so the route sits outside bearer auth.
type FileHandler struct {
	Store object.ObjectStore
	Links auth.Verifier
}

func NewFileHandler(store object.ObjectStore, links auth.Verifier) *FileHandler {
	return &FileHandler{Store: store, Links: links}
}

// RegisterRoutes mounts GET /files/*key on the given group.
func (h *FileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*key", h.download)
}

func (h *FileHandler) download(c *gin.Context) {
	key, err := object.CleanKey(strings.TrimPrefix(c.Param("key"), "/"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}

	claims, err := h.Links.Verify(c.Query("token"))
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		respond.Error(c, http.StatusGone, "link_expired", "download link expired", nil)
		return
	case err != nil || claims.Sub != key:
		respond.Error(c, http.StatusForbidden, "forbidden", "invalid download link", nil)
		return
	}

	rc, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file", nil)
		return
	}
	defer rc.Close()

	name := key[strings.LastIndex(key, "/")+1:]
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Cache-Control", "private, no-store")
	c.Header("Content-Type", object.ContentTypePDF)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(err)
	}
}
