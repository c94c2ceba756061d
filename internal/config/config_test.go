package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://ingest:pw@localhost:5432/rtdas")
	t.Setenv("INGEST_FOLDER", "/data/telemetry")
	t.Setenv("INGEST_DRIVER", "")
	t.Setenv("INGEST_DATA_TABLE", "")
	t.Setenv("INGEST_AUDIT_TABLE", "")
	t.Setenv("INGEST_PROCESSED_TABLE", "")
	t.Setenv("INGEST_WORKERS", "")
	t.Setenv("INGEST_QUARANTINE_RETRY", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres default", cfg.Driver)
	}
	if cfg.DataTable != "rtdas_ingest" ||
		cfg.AuditTable != "rtdas_ingest_audit" ||
		cfg.ProcessedTable != "rtdas_processed_files" {
		t.Errorf("table defaults wrong: %+v", cfg)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (derive from CPU)", cfg.Workers)
	}
	if cfg.RetryQuarantined {
		t.Error("RetryQuarantined must default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INGEST_DRIVER", "sqlite")
	t.Setenv("INGEST_DATA_TABLE", "telemetry")
	t.Setenv("INGEST_WORKERS", "3")
	t.Setenv("INGEST_QUARANTINE_RETRY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != "sqlite" || cfg.DataTable != "telemetry" || cfg.Workers != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.RetryQuarantined {
		t.Error("RetryQuarantined = false, want true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v, want DATABASE_URL requirement", err)
	}

	setBaseEnv(t)
	t.Setenv("INGEST_FOLDER", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "INGEST_FOLDER") {
		t.Fatalf("err = %v, want INGEST_FOLDER requirement", err)
	}
}

func TestLoadBadWorkers(t *testing.T) {
	setBaseEnv(t)

	for _, v := range []string{"many", "-1", "1.5"} {
		t.Setenv("INGEST_WORKERS", v)
		if _, err := Load(); err == nil {
			t.Errorf("INGEST_WORKERS=%q: want error", v)
		}
	}
}
