package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resume-roast/internal/shared/auth"
)

func newLinkCodec(t *testing.T) *auth.HS256 {
	t.Helper()
	codec, err := auth.NewHS256("files-secret", false)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return codec
}

func TestSaveOpenPresignRoundTrip(t *testing.T) {
	codec := newLinkCodec(t)
	store := New(t.TempDir()).WithLinks(codec, "https://api.example.com/")
	ctx := context.Background()

	key, size, err := store.Save(ctx, "google:42", "resume.pdf", bytes.NewReader([]byte("%PDF-1.4 body")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected size %d", size)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	link, err := store.PresignGet(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if u.Host != "api.example.com" || u.Path != FilesPath+key {
		t.Fatalf("unexpected link %q", link)
	}
	claims, err := codec.Verify(u.Query().Get("token"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != key {
		t.Fatalf("expected link bound to %q, got %q", key, claims.Sub)
	}
}

func TestPresignGetExpiresAfterTTL(t *testing.T) {
	codec := newLinkCodec(t)
	store := New(t.TempDir()).WithLinks(codec, "")
	ctx := context.Background()
	key, _, err := store.Save(ctx, "u1", "resume.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	link, err := store.PresignGet(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if !strings.HasPrefix(link, FilesPath) {
		t.Fatalf("expected relative link, got %q", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if _, err := codec.Verify(u.Query().Get("token")); !errors.Is(err, auth.ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestPresignGetWithoutSigner(t *testing.T) {
	store := New(t.TempDir())
	key, _, err := store.Save(context.Background(), "u1", "resume.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.PresignGet(context.Background(), key, time.Hour); !errors.Is(err, ErrLinksDisabled) {
		t.Fatalf("expected ErrLinksDisabled, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	if _, _, err := store.Save(context.Background(), "u1", "resume.pdf", failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*", "*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			t.Fatalf("partial file left behind: %s", m)
		}
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestPresignGetMissingObject(t *testing.T) {
	store := New(t.TempDir()).WithLinks(newLinkCodec(t), "")
	if _, err := store.PresignGet(context.Background(), "nobody/missing.pdf", time.Hour); err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestSaveHonorsCanceledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := store.Save(ctx, "u1", "resume.pdf", bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected canceled context error")
	}
}
