// Package storage contains the storage-agnostic contracts of the ingest.
// Concrete backends live in subpackages and register themselves with the
// factory; callers select one by kind and depend only on Repository.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/Rohit-Borah/NHP-API/internal/records"
)

// Config selects and configures a storage backend.
type Config struct {
	// Kind selects the backend implementation ("postgres", "sqlite").
	Kind string

	// DSN is the backend connection string (pgxpool URL or SQLite path).
	DSN string

	// Table names for the three ingest tables.
	DataTable      string
	AuditTable     string
	ProcessedTable string
}

// Row is one accepted record with its fingerprint, the storage primary key.
type Row struct {
	records.Record
	UUID string
}

// Audit captures the outcome of one file-processing attempt. Payload is a
// JSON array of rejected rows; nil when the file had no rejections.
type Audit struct {
	FileName string
	Total    int
	Accepted int
	Rejected int
	Payload  []byte
}

// FileBatch is the atomic unit of work for one file: accepted rows, the
// audit entry, and (usually) the processed-file marker. Backends commit all
// of it in a single transaction or none of it.
//
// MarkProcessed is false only when a fully quarantined file should stay
// eligible for a future run (the configurable retry policy).
type FileBatch struct {
	FileName      string
	Rows          []Row
	Audit         Audit
	MarkProcessed bool
}

// Repository is the minimal storage contract used by the scheduler and the
// per-file pipeline. Implementations must make CommitFile transactional and
// must treat a fingerprint conflict as a silent no-op, never an error.
type Repository interface {
	// EnsureSchema idempotently creates the three ingest tables.
	EnsureSchema(ctx context.Context) error

	// ProcessedFiles returns the set of file names already marked processed.
	ProcessedFiles(ctx context.Context) (map[string]struct{}, error)

	// CommitFile atomically persists one file's batch and returns the number
	// of rows actually inserted (conflicts excluded).
	CommitFile(ctx context.Context, batch FileBatch) (int64, error)

	// Close releases the backend's resources.
	Close()
}

// Factory constructs a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var factories = map[string]Factory{}

// Register installs a backend factory under kind. Backends call this from
// init; the "all" subpackage pulls them in via blank imports.
func Register(kind string, f Factory) {
	factories[kind] = f
}

// New constructs the repository selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	f, ok := factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%q (registered: %v)", cfg.Kind, registered())
	}
	return f(ctx, cfg)
}

func registered() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
