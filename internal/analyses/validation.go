package analyses

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest accepted resume.
const MaxUploadBytes int64 = 5 << 20

// validateUpload accepts a PDF by extension or declared content type.
func validateUpload(sub Submission, maxBytes int64) error {
	if len(sub.Data) == 0 {
		return &ValidationError{Reason: "file is empty"}
	}
	if !isPDF(sub.Filename, sub.ContentType) {
		return &ValidationError{Reason: "only PDF files are allowed"}
	}
	if int64(len(sub.Data)) > maxBytes {
		return &ValidationError{Reason: fmt.Sprintf("file too large (max %dMB)", maxBytes>>20)}
	}
	return nil
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.EqualFold(mediaType, "application/pdf")
}
