package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.JWT.ExpireHour != 24 {
		t.Errorf("JWT.ExpireHour = %d, expected 24", cfg.JWT.ExpireHour)
	}
	if cfg.JWT.Issuer == "" {
		t.Error("JWT.Issuer should have a default")
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("SMTP.Port = %d, expected 587", cfg.SMTP.Port)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@redis:6380/2", "redis:6380", "secret", 2},
		{"redis://user:pw@10.0.0.1:6379/0", "10.0.0.1:6379", "pw", 0},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.parseRedisURL(tt.url)
		if cfg.Redis.Addr != tt.addr {
			t.Errorf("%s: Addr = %q, expected %q", tt.url, cfg.Redis.Addr, tt.addr)
		}
		if cfg.Redis.Password != tt.password {
			t.Errorf("%s: Password = %q, expected %q", tt.url, cfg.Redis.Password, tt.password)
		}
		if cfg.Redis.DB != tt.db {
			t.Errorf("%s: DB = %d, expected %d", tt.url, cfg.Redis.DB, tt.db)
		}
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected 8080", cfg.Server.Port)
	}
	if GlobalConfig != cfg {
		t.Error("GlobalConfig should point at the loaded config")
	}
}

func TestLoad_FileKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: \"9090\"\ndatabase:\n  driver: postgres\n  dsn: host=db\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected postgres", cfg.Database.Driver)
	}
	if cfg.JWT.ExpireHour != 24 {
		t.Errorf("JWT.ExpireHour = %d, expected default 24", cfg.JWT.ExpireHour)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("AUTH_ISSUER", "auth.example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("REDIS_URL", "redis://:pw@cache:6379/1")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, http://localhost:5173 ,")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("JWT.Secret = %q", cfg.JWT.Secret)
	}
	if cfg.JWT.Issuer != "auth.example.com" {
		t.Errorf("JWT.Issuer = %q", cfg.JWT.Issuer)
	}
	if !cfg.SMTP.Enabled || cfg.SMTP.Host != "smtp.example.com" || cfg.SMTP.Port != 2525 {
		t.Errorf("SMTP = %+v", cfg.SMTP)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 1 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}
