package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resume-roast/internal/shared/auth"
	"resume-roast/internal/shared/storage/object"
)

// FilesPath is the route prefix that serves signed download links.
const FilesPath = "/api/files/"

// ErrLinksDisabled is returned by PresignGet when no link signer is configured.
var ErrLinksDisabled = errors.New("download links not configured")

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
	links   auth.Signer
	baseURL string
	now     func() time.Time
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

// WithLinks enables signed download links. baseURL may be empty, in which
// case links are relative to the API host.
func (s *Store) WithLinks(signer auth.Signer, baseURL string) *Store {
	s.links = signer
	s.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return s
}

// Save writes the reader to disk under the user's namespace.
func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	storageKey, err := object.NewKey(userID, fileName)
	if err != nil {
		return "", 0, err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(storageKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", 0, fmt.Errorf("write body: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", 0, fmt.Errorf("close file: %w", err)
	}
	return storageKey, written, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// PresignGet returns a signed link under FilesPath that stops verifying
// once ttl has passed.
func (s *Store) PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.links == nil {
		return "", ErrLinksDisabled
	}
	clean, err := object.CleanKey(storageKey)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(clean))); err != nil {
		return "", fmt.Errorf("stat object: %w", err)
	}
	if ttl <= 0 {
		ttl = object.DefaultPresignTTL
	}

	now := s.now().UTC()
	token, err := s.links.Sign(auth.Claims{
		Sub: clean,
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign link: %w", err)
	}

	segments := strings.Split(clean, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + FilesPath + strings.Join(segments, "/") + "?token=" + url.QueryEscape(token), nil
}

func (s *Store) resolve(storageKey string) (string, error) {
	clean, err := object.CleanKey(storageKey)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

var _ object.ObjectStore = (*Store)(nil)
