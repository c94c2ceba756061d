// Package sqlite implements the ingest repository on an embedded SQLite
// database (modernc.org/sqlite, no cgo). It mirrors the Postgres backend's
// transactional per-file commit and is mainly useful for local runs and
// tests that need a real store without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Rohit-Borah/NHP-API/internal/records"
	"github.com/Rohit-Borah/NHP-API/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return Open(ctx, cfg)
	})
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg storage.Config

	insertSQL string
}

// Open opens (or creates) the database file at cfg.DSN. Writes are
// serialized through a single connection; SQLite allows one writer at a
// time, so concurrent workers queue here instead of erroring.
func Open(ctx context.Context, cfg storage.Config) (*Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Repository{db: db, cfg: cfg, insertSQL: buildInsertSQL(cfg.DataTable)}, nil
}

// Close closes the database handle.
func (r *Repository) Close() { _ = r.db.Close() }

// EnsureSchema creates the three ingest tables if absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, records.NumColumns)
	for _, c := range records.Columns {
		cols = append(cols, ident(c)+" TEXT")
	}

	stmts := []string{
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (%s, "uuid" TEXT PRIMARY KEY)`,
			ident(r.cfg.DataTable), strings.Join(cols, ", "),
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_name TEXT,
				record_count INTEGER,
				success_count INTEGER,
				fail_count INTEGER,
				failed_records TEXT,
				"timestamp" TEXT DEFAULT CURRENT_TIMESTAMP
			)`,
			ident(r.cfg.AuditTable),
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				file_name TEXT PRIMARY KEY,
				processed_at TEXT DEFAULT CURRENT_TIMESTAMP
			)`,
			ident(r.cfg.ProcessedTable),
		),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ProcessedFiles fetches the processed-file registry in one query.
func (r *Repository) ProcessedFiles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT file_name FROM %s`, ident(r.cfg.ProcessedTable)))
	if err != nil {
		return nil, fmt.Errorf("query processed files: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

// CommitFile persists one file's batch inside a single transaction, using
// INSERT OR IGNORE so an existing fingerprint is a silent no-op.
func (r *Repository) CommitFile(ctx context.Context, b storage.FileBatch) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var inserted int64
	for _, row := range b.Rows {
		res, err := tx.ExecContext(ctx, r.insertSQL, insertArgs(row)...)
		if err != nil {
			return 0, fmt.Errorf("commit file %s: %w", b.FileName, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(
			`INSERT INTO %s (file_name, record_count, success_count, fail_count, failed_records)
			 VALUES (?, ?, ?, ?, ?)`,
			ident(r.cfg.AuditTable),
		),
		b.Audit.FileName, b.Audit.Total, b.Audit.Accepted, b.Audit.Rejected, jsonArg(b.Audit.Payload),
	); err != nil {
		return 0, fmt.Errorf("commit file %s: audit: %w", b.FileName, err)
	}

	if b.MarkProcessed {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(
				`INSERT INTO %s (file_name) VALUES (?)
				 ON CONFLICT (file_name) DO UPDATE SET processed_at = CURRENT_TIMESTAMP`,
				ident(r.cfg.ProcessedTable),
			),
			b.FileName,
		); err != nil {
			return 0, fmt.Errorf("commit file %s: mark processed: %w", b.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit file %s: %w", b.FileName, err)
	}
	return inserted, nil
}

func buildInsertSQL(table string) string {
	cols := make([]string, 0, records.NumColumns+1)
	ph := make([]string, 0, records.NumColumns+1)
	for _, c := range records.Columns {
		cols = append(cols, ident(c))
		ph = append(ph, "?")
	}
	cols = append(cols, `"uuid"`)
	ph = append(ph, "?")
	return fmt.Sprintf(
		`INSERT OR IGNORE INTO %s (%s) VALUES (%s)`,
		ident(table), strings.Join(cols, ", "), strings.Join(ph, ", "),
	)
}

func insertArgs(row storage.Row) []any {
	vals := row.Values()
	args := make([]any, 0, len(vals)+1)
	for _, v := range vals {
		args = append(args, v)
	}
	return append(args, row.UUID)
}

func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// ident quotes an identifier with double quotes (canonical column names
// contain dots).
func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
