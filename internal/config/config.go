// Package config loads ingest settings from the environment, with an
// optional .env file for local development. Flags on the CLI override
// whatever is loaded here.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting of the ingest.
type Config struct {
	// DatabaseURL is the store connection string (pgx URL for postgres, file
	// path for sqlite). Required.
	DatabaseURL string

	// Driver selects the storage backend. Default "postgres".
	Driver string

	// Folder is the directory scanned for telemetry files. Required.
	Folder string

	DataTable      string
	AuditTable     string
	ProcessedTable string

	// Workers bounds the pool; zero derives it from CPU count.
	Workers int

	// RetryQuarantined leaves fully-rejected files eligible for a later run.
	RetryQuarantined bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Driver:           getenvDefault("INGEST_DRIVER", "postgres"),
		Folder:           os.Getenv("INGEST_FOLDER"),
		DataTable:        getenvDefault("INGEST_DATA_TABLE", "rtdas_ingest"),
		AuditTable:       getenvDefault("INGEST_AUDIT_TABLE", "rtdas_ingest_audit"),
		ProcessedTable:   getenvDefault("INGEST_PROCESSED_TABLE", "rtdas_processed_files"),
		RetryQuarantined: boolEnv("INGEST_QUARANTINE_RETRY"),
	}

	if v := os.Getenv("INGEST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("INGEST_WORKERS=%q: must be a non-negative integer", v)
		}
		cfg.Workers = n
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Folder == "" {
		return Config{}, fmt.Errorf("INGEST_FOLDER is required")
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// boolEnv treats "1", "true", "yes" (any case) as true.
func boolEnv(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	}
	return false
}
