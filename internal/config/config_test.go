package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		t.Setenv(strings.ToUpper(k), "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.StorageBackend != "disk" {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, "disk")
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 168*time.Hour)
	}
	if cfg.WeeklyStaleTime != 5*time.Minute {
		t.Errorf("WeeklyStaleTime = %v, want %v", cfg.WeeklyStaleTime, 5*time.Minute)
	}
	if cfg.Location != time.Local {
		t.Errorf("Location = %v, want Local", cfg.Location)
	}
	if len(cfg.AdminEmails) != 0 {
		t.Errorf("AdminEmails = %v, want empty", cfg.AdminEmails)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/fitchallenge")
	t.Setenv("DISPLAY_TZ", "UTC")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ADMIN_EMAILS", " Boss@Example.com, ops@example.com ,")
	t.Setenv("PUBLIC_BASE_URL", "https://fit.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/fitchallenge" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/fitchallenge")
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Location = %q, want %q", cfg.Location.String(), "UTC")
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 2*time.Hour)
	}
	if cfg.PublicBaseURL != "https://fit.example.com" {
		t.Errorf("PublicBaseURL = %q, want %q", cfg.PublicBaseURL, "https://fit.example.com")
	}
	if len(cfg.AdminEmails) != 2 {
		t.Fatalf("AdminEmails = %v, want 2 entries", cfg.AdminEmails)
	}
	if !cfg.IsAdmin("boss@example.com") || !cfg.IsAdmin("OPS@example.com") {
		t.Errorf("IsAdmin should match listed emails case-insensitively")
	}
	if cfg.IsAdmin("someone@example.com") {
		t.Errorf("IsAdmin(someone) = true, want false")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %v, want %v (fallback)", cfg.SessionTTL, 168*time.Hour)
	}
}

func TestLoad_InvalidTimeZone(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISPLAY_TZ", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on an unknown time zone")
	}
}

func TestLoad_UnknownStorageBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on an unknown storage backend")
	}
}
