package analyses

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-roast/internal/quota"
	"resume-roast/internal/shared/server/middleware"
	"resume-roast/internal/shared/server/respond"
)

// multipart overhead allowed on top of the file limit before the body is cut.
const formOverheadBytes = 6 << 20

type Handler struct {
	Svc        *Service
	AdminEmail string
}

func NewHandler(svc *Service, adminEmail string) *Handler {
	return &Handler{Svc: svc, AdminEmail: adminEmail}
}

// RegisterRoutes mounts the submitter and admin routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/history", h.history)
	rg.GET("/rate-limit-status", h.rateLimitStatus)

	admin := rg.Group("/admin", middleware.RequireAdmin(h.AdminEmail))
	admin.GET("/stats", h.adminStats)
	admin.GET("/resumes", h.adminResumes)
	admin.GET("/download/:id", h.adminDownload)
}

func (h *Handler) analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxUploadBytes()+formOverheadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respond.Error(c, http.StatusBadRequest, "invalid_input", fmt.Sprintf("file too large (max %dMB)", h.Svc.maxUploadBytes()>>20), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_input", "file is required", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "failed to read upload", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "failed to read upload", nil)
		return
	}

	res, err := h.Svc.Analyze(c.Request.Context(), Submission{
		UserID:         userID,
		Filename:       fileHeader.Filename,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		Data:           data,
		JobRole:        c.PostForm("job_role"),
		JobDescription: c.PostForm("job_description"),
	})
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}

	c.Set("resumeId", res.ResumeID)
	respond.OK(c, gin.H{
		"success":    true,
		"resume_id":  res.ResumeID,
		"feedback":   res.Feedback,
		"score":      res.Score,
		"page_count": res.PageCount,
		"word_count": res.WordCount,
	})
}

func (h *Handler) writeAnalyzeError(c *gin.Context, err error) {
	var (
		validation *ValidationError
		denied     *quota.DeniedError
		failed     *FailedError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	case errors.As(err, &validation):
		respond.Error(c, http.StatusBadRequest, "invalid_input", validation.Reason, nil)
	case errors.As(err, &denied):
		seconds := int(math.Ceil(denied.RetryAfter.Sub(h.Svc.now()).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("Rate limit exceeded. You can submit %d per hour.", h.Svc.Quota.Max()),
			gin.H{"retry_after": denied.RetryAfter.UTC().Format(time.RFC3339)})
	case errors.Is(err, quota.ErrLockTimeout):
		respond.Error(c, http.StatusConflict, "submission_in_progress", "another submission is in progress", nil)
	case errors.As(err, &failed):
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", "Analysis failed: "+failed.Err.Error(), gin.H{"stage": failed.Stage})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record analysis", nil)
	}
}

func (h *Handler) history(c *gin.Context) {
	items, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"id":         it.ID,
			"filename":   it.Filename,
			"score":      it.Score,
			"page_count": it.PageCount,
			"word_count": it.WordCount,
			"job_role":   it.JobRole,
			"created_at": it.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respond.OK(c, gin.H{"resumes": out})
}

func (h *Handler) rateLimitStatus(c *gin.Context) {
	status, err := h.Svc.QuotaStatus(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load quota", nil)
		return
	}
	var next *string
	if status.NextAvailable != nil {
		s := status.NextAvailable.UTC().Format(time.RFC3339)
		next = &s
	}
	respond.OK(c, gin.H{
		"remaining":      status.Remaining,
		"total":          status.Total,
		"next_available": next,
	})
}

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.Svc.AdminStats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load stats", nil)
		return
	}
	respond.OK(c, gin.H{
		"total_resumes":    stats.TotalResumes,
		"total_users":      stats.TotalUsers,
		"average_score":    stats.AverageScore,
		"max_score":        stats.MaxScore,
		"min_score":        stats.MinScore,
		"resumes_last_24h": stats.ResumesLast24h,
	})
}

func (h *Handler) adminResumes(c *gin.Context) {
	rows, err := h.Svc.AdminResumes(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load resumes", nil)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"id":              r.ID,
			"user_id":         r.UserID,
			"user_email":      r.UserEmail,
			"filename":        r.Filename,
			"score":           r.Score,
			"feedback":        r.Feedback,
			"page_count":      r.PageCount,
			"word_count":      r.WordCount,
			"job_role":        r.JobRole,
			"job_description": r.JobDescription,
			"created_at":      r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respond.OK(c, gin.H{"resumes": out})
}

func (h *Handler) adminDownload(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("resumeId", id)
	dl, err := h.Svc.DownloadURL(c.Request.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create download link", nil)
		return
	}
	respond.OK(c, gin.H{
		"url":        dl.URL,
		"expires_at": dl.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
