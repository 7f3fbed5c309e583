package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "apptcal.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DebounceMillis != 300 || cfg.BufferDays != 7 || cfg.Mirror.Kind != "none" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apptcal.yaml")
	data := []byte("viewer:\n  id: \"42\"\n  role: doctor\nlog_level: LOUD\nrefresh: not a cron\nmirror:\n  kind: ics\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Viewer.ID != "42" || cfg.Viewer.Role != "doctor" {
		t.Fatalf("viewer not read: %+v", cfg.Viewer)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unknown log level must fall back to info, got %q", cfg.LogLevel)
	}
	if cfg.RefreshCron != "*/5 * * * *" {
		t.Fatalf("invalid cron must fall back, got %q", cfg.RefreshCron)
	}
	if cfg.Mirror.ICS.Path != "apptcal.ics" {
		t.Fatalf("ics mirror needs a default path, got %q", cfg.Mirror.ICS.Path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apptcal.yaml")
	cfg := DefaultConfig()
	cfg.Redis.URL = "redis://localhost:6379/0"
	cfg.PrivilegedRoles = []string{"admin", "scheduler"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Redis.URL != cfg.Redis.URL || len(got.PrivilegedRoles) != 2 {
		t.Fatalf("unexpected config after reload: %+v", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APPTCAL_VIEWER_ID", "9")
	t.Setenv("APPTCAL_PRIVILEGED_ROLES", "admin, nurse ,")
	t.Setenv("APPTCAL_DEBOUNCE_MS", "150")
	t.Setenv("APPTCAL_BUFFER_DAYS", "nope")
	t.Setenv("APPTCAL_MIRROR", "GOOGLE")

	cfg := FromEnv(*DefaultConfig())
	if cfg.Viewer.ID != "9" {
		t.Fatalf("expected viewer 9, got %q", cfg.Viewer.ID)
	}
	if len(cfg.PrivilegedRoles) != 2 || cfg.PrivilegedRoles[1] != "nurse" {
		t.Fatalf("unexpected roles %v", cfg.PrivilegedRoles)
	}
	if cfg.Debounce() != 150*time.Millisecond {
		t.Fatalf("unexpected debounce %s", cfg.Debounce())
	}
	if cfg.BufferDays != 7 {
		t.Fatalf("malformed int must keep the base value, got %d", cfg.BufferDays)
	}
	if cfg.Mirror.Kind != "google" {
		t.Fatalf("expected google mirror, got %q", cfg.Mirror.Kind)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("APPTCAL_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("APPTCAL_TEST_DOTENV", "")
	os.Unsetenv("APPTCAL_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("APPTCAL_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v %v", loc, err)
	}
	cfg.Timezone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}
