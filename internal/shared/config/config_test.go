package config

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"resume-roast/internal/shared/telemetry"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("RATE_BURST", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.RateBurst != 10 {
		t.Fatalf("expected burst 10, got %d", cfg.RateBurst)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("QUOTA_STRICT", "yes")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_RPS", "not-a-number")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if cfg.LLMProvider != "vertex" {
		t.Fatalf("expected vertex provider, got %q", cfg.LLMProvider)
	}
	if !cfg.QuotaStrict {
		t.Fatalf("expected strict quota")
	}
	if len(cfg.CORSAllowOrigin) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowOrigin)
	}
	if cfg.RateRPS != 2 {
		t.Fatalf("expected default rps on parse failure, got %v", cfg.RateRPS)
	}
	if cfg.IsDevLike() {
		t.Fatalf("production must not be dev-like")
	}
}

func TestLoadLogsConfigProblems(t *testing.T) {
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RATE_BURST", "ten")

	cfg := Load()
	if cfg.RateBurst != 10 {
		t.Fatalf("expected default burst, got %d", cfg.RateBurst)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"config.database_url_missing"`, `"msg":"config.invalid_int"`, `"key":"RATE_BURST"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output:\n%s", want, out)
		}
	}
}
