package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-roast/internal/shared/util"
)

// ContentTypePDF is the content type stored alongside every uploaded resume.
const ContentTypePDF = "application/pdf"

// DefaultPresignTTL is the lifetime of admin download links.
const DefaultPresignTTL = time.Hour

// ErrInvalidKey is returned for storage keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}

// NewKey builds a storage key namespaced by the hashed user id, with a random
// prefix in front of the sanitized file name.
func NewKey(userID, fileName string) (string, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	finalName := fmt.Sprintf("%s_%s", strings.ReplaceAll(uuid.NewString(), "-", ""), sanitized)
	return path.Join(UserNamespace(userID), finalName), nil
}

// UserNamespace is the key prefix for a user's uploads. Provider ids carry
// colons, so the raw id never reaches a path.
func UserNamespace(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

// CleanKey normalizes a storage key and rejects traversal or absolute paths.
func CleanKey(storageKey string) (string, error) {
	trimmed := strings.TrimSpace(storageKey)
	if trimmed == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(strings.ReplaceAll(trimmed, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.HasPrefix(clean, "/") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
