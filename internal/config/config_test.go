package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("UPLOAD_MAX_ATTEMPTS", "")
	t.Setenv("UPLOAD_BASE_DELAY", "")
	t.Setenv("IMPORT_CHUNK_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != "disk" {
		t.Errorf("Storage.Driver = %q, want disk", cfg.Storage.Driver)
	}
	if cfg.Upload.MaxAttempts != 3 || cfg.Upload.BaseDelay != time.Second {
		t.Errorf("unexpected upload defaults: %+v", cfg.Upload)
	}
	if cfg.Import.ChunkSize != 500 {
		t.Errorf("Import.ChunkSize = %d, want 500", cfg.Import.ChunkSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("UPLOAD_MAX_ATTEMPTS", "5")
	t.Setenv("UPLOAD_BASE_DELAY", "250ms")
	t.Setenv("SLA_THRESHOLD", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Upload.MaxAttempts != 5 || cfg.Upload.BaseDelay != 250*time.Millisecond {
		t.Errorf("overrides not applied: %+v", cfg.Upload)
	}
	if cfg.SLA.Threshold != 48*time.Hour {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.SLA.Threshold)
	}
}

func TestLoadNonPositiveDurationsFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "")
	for _, v := range []string{"0s", "-1m"} {
		t.Setenv("SLA_CHECK_INTERVAL", v)
		t.Setenv("UPLOAD_ATTEMPT_TIMEOUT", v)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.SLA.Interval != 15*time.Minute {
			t.Errorf("SLA_CHECK_INTERVAL=%s: interval = %v, want 15m", v, cfg.SLA.Interval)
		}
		if cfg.Upload.AttemptTimeout != 30*time.Second {
			t.Errorf("UPLOAD_ATTEMPT_TIMEOUT=%s: timeout = %v, want 30s", v, cfg.Upload.AttemptTimeout)
		}
	}
}

func TestLoadRejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestLoadToolsSkipsJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("APP_TIMEZONE", "")
	cfg, err := LoadTools()
	if err != nil {
		t.Fatalf("LoadTools failed: %v", err)
	}
	if cfg.Timezone != "America/Sao_Paulo" || cfg.Admin.Username != "admin" {
		t.Errorf("unexpected defaults: timezone %q admin %q", cfg.Timezone, cfg.Admin.Username)
	}
}
