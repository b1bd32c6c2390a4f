package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets keys for the test and restores them afterwards.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

var configKeys = []string{
	"CONFIG_FILE", "ENV", "HTTP_PORT", "PUBLIC_URL", "CORS_ORIGINS", "STORAGE", "UPLOADS_DIR",
	"UPLOADS_MAX_BYTES", "PUBLIC_LISTS_CACHE_TTL", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER",
	"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "AUTH_JWT_SECRET", "AUTH_TOKEN_TTL", "AUTH_SKIP",
	"AUTH_MOCK_USER_ID", "AUTH_MOCK_USER_NAME",
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t, configKeys...)
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.Storage != StoragePostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PublicURL != "http://localhost:8080" {
		t.Fatalf("expected public url from port, got %q", cfg.PublicURL)
	}
	if cfg.PublicListsCacheTTL != 30*time.Second || cfg.Uploads.MaxBytes != 10<<20 {
		t.Fatalf("unexpected cache/upload defaults %+v", cfg)
	}
}

func TestLoadRequiresSecretUnlessSkipped(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t, configKeys...)

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected missing secret error")
	}

	t.Setenv("AUTH_SKIP", "true")
	if _, err := Load(nil); err != nil {
		t.Fatalf("expected skip auth to load, got %v", err)
	}
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t, configKeys...)
	t.Setenv("AUTH_SKIP", "true")
	t.Setenv("STORAGE", "redis")

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected unknown storage error")
	}
}

func TestDotEnvAndFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	clearEnv(t, configKeys...)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_PORT=9000\nSTORAGE=memory\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	yamlPath := filepath.Join(dir, "lists.yaml")
	yamlBody := `
http:
  port: "7000"
  public_url: https://lists.example/
  cors_origins: [https://app.example, https://admin.example]
storage: postgres
cache:
  public_lists_ttl: 2m
auth:
  skip: true
  mock_user_name: Dev
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", yamlPath)
	t.Setenv("UPLOADS_DIR", "/srv/uploads")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "9000" || cfg.Storage != StorageMemory {
		t.Fatalf("expected .env to win over file, got port %q storage %q", cfg.HTTPPort, cfg.Storage)
	}
	if cfg.PublicURL != "https://lists.example" || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected file values, got %q %v", cfg.PublicURL, cfg.CORSOrigins)
	}
	if cfg.PublicListsCacheTTL != 2*time.Minute || !cfg.Auth.SkipAuth || cfg.Auth.MockUserName != "Dev" {
		t.Fatalf("unexpected file overlay %+v", cfg)
	}
	if cfg.Uploads.Dir != "/srv/uploads" {
		t.Fatalf("expected env to win, got %q", cfg.Uploads.Dir)
	}
}

func TestGetDSN(t *testing.T) {
	if got := (DBConfig{DSN: "postgres://x"}).GetDSN(); got != "postgres://x" {
		t.Fatalf("expected explicit dsn, got %q", got)
	}
	cfg := DBConfig{Host: "h", User: "u", Password: "p", Name: "n", Port: "1", SSLMode: "disable", TimeZone: "UTC"}
	want := "host=h user=u password=p dbname=n port=1 sslmode=disable TimeZone=UTC"
	if got := cfg.GetDSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
