package object

import (
	"errors"
	"strings"
	"testing"
)

func TestNewKeyNamespacesByHashedUser(t *testing.T) {
	key, err := NewKey("google:42", "my resume.pdf")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	prefix := UserNamespace("google:42") + "/"
	if !strings.HasPrefix(key, prefix) {
		t.Fatalf("expected key under %q, got %q", prefix, key)
	}
	if !strings.HasSuffix(key, "_my resume.pdf") {
		t.Fatalf("expected sanitized file name suffix, got %q", key)
	}

	other, err := NewKey("google:42", "my resume.pdf")
	if err != nil {
		t.Fatalf("NewKey second: %v", err)
	}
	if other == key {
		t.Fatalf("expected random prefix to differ between keys")
	}
}

func TestUserNamespace(t *testing.T) {
	ns := UserNamespace("google:42")
	if len(ns) != 32 || strings.Trim(ns, "0123456789abcdef") != "" {
		t.Fatalf("expected 32 lowercase hex characters, got %q", ns)
	}
	if ns != UserNamespace("google:42") {
		t.Fatalf("expected a stable namespace")
	}
	if ns == UserNamespace("google:43") {
		t.Fatalf("expected distinct users to get distinct namespaces")
	}
}

func TestNewKeyFlattensTraversal(t *testing.T) {
	key, err := NewKey("u1", "../etc/passwd")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if strings.Contains(key, "..") || strings.Count(key, "/") != 1 || !strings.HasSuffix(key, "_etc_passwd") {
		t.Fatalf("expected a single flattened segment, got %q", key)
	}
	if _, err := NewKey("u1", " / "); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "abc/file.pdf", want: "abc/file.pdf"},
		{name: "redundant segments", key: "abc/./file.pdf", want: "abc/file.pdf"},
		{name: "traversal", key: "../file.pdf", wantErr: true},
		{name: "absolute", key: "/abc/file.pdf", wantErr: true},
		{name: "empty", key: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanKey: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CleanKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
