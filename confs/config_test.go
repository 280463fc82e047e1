package confs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "APP_ENV", "LOG_MODE", "CORS_ORIGINS", "DB_DRIVER", "DB_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "SQLITE_PATH",
		"JWT_SECRET", "JWT_TTL", "REDIS_URL", "CREDENTIAL_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load: unexpected errors: %v", errs)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("HTTPAddr: want=%q got=%q", DefaultHTTPAddr, cfg.HTTPAddr)
	}
	if cfg.Database.SQLitePath != DefaultSQLitePath {
		t.Fatalf("SQLitePath: want=%q got=%q", DefaultSQLitePath, cfg.Database.SQLitePath)
	}
	if cfg.JWTTTL != DefaultJWTTTL {
		t.Fatalf("JWTTTL: want=%v got=%v", DefaultJWTTTL, cfg.JWTTTL)
	}
	if cfg.LogMode != DefaultEnv {
		t.Fatalf("LogMode: want=%q got=%q", DefaultEnv, cfg.LogMode)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
http_addr: "127.0.0.1:9000"
jwt_secret: "from-file"
jwt_ttl: "2h"
cors_origins: ["https://a.example", "https://b.example"]
database:
  driver: sqlite
  sqlite_path: /tmp/file.db
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HTTP_ADDR", "0.0.0.0:8080")
	t.Setenv("CREDENTIAL_CACHE_TTL", "30")

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("Load: unexpected errors: %v", errs)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr: env should win, got %q", cfg.HTTPAddr)
	}
	if cfg.JWTSecret != "from-file" {
		t.Fatalf("JWTSecret: want from-file got %q", cfg.JWTSecret)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("JWTTTL: want=2h got=%v", cfg.JWTTTL)
	}
	if cfg.CredentialCacheTTL != 30*time.Second {
		t.Fatalf("CredentialCacheTTL: want=30s got=%v", cfg.CredentialCacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins: want 2 got %v", cfg.CORSOrigins)
	}
	if cfg.Database.SQLitePath != "/tmp/file.db" {
		t.Fatalf("SQLitePath: got %q", cfg.Database.SQLitePath)
	}
}

func TestLoadCollectsValidationErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_TTL", "soon")

	_, errs := Load("")
	// bad JWT_TTL, missing postgres settings, missing JWT_SECRET
	if len(errs) != 3 {
		t.Fatalf("Load: want 3 errors, got %d: %v", len(errs), errs)
	}
}
