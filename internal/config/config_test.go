package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesUploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("UPLOAD_DIR", dir)

	cfg := Load()

	if cfg.UploadDir != dir {
		t.Errorf("Expected upload dir %s, got %s", dir, cfg.UploadDir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Expected upload dir to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected upload path to be a directory")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("UPLOAD_DIR", t.TempDir())

	cfg := Load()

	if cfg.AppPort != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Errorf("Expected 24h access TTL, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("Expected 168h refresh TTL, got %s", cfg.RefreshTokenTTL)
	}
	if cfg.SMSCountryCode != "26" {
		t.Errorf("Expected country code 26, got %s", cfg.SMSCountryCode)
	}
}
