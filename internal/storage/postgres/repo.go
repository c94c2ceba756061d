// Package postgres implements the ingest repository on Postgres using pgx
// v5. Each file commits as one transaction: a batched conflict-tolerant
// insert into the data table, the audit row, and the processed-file marker.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rohit-Borah/NHP-API/internal/records"
	"github.com/Rohit-Borah/NHP-API/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  storage.Config

	insertSQL string
}

// NewRepository opens a pgx pool against cfg.DSN.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{
		pool:      pool,
		cfg:       cfg,
		insertSQL: buildInsertSQL(cfg.DataTable),
	}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() { r.pool.Close() }

// EnsureSchema creates the data, audit, and processed-file tables if absent.
// Shapes are fixed; the query service depends on the data table's column
// names and the fingerprint primary key staying stable.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, records.NumColumns+1)
	for _, c := range records.Columns {
		cols = append(cols, pgIdent(c)+" TEXT")
	}
	cols = append(cols, `"uuid" TEXT`)

	stmts := []string{
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY ("uuid"))`,
			pgFQN(r.cfg.DataTable), strings.Join(cols, ", "),
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				file_name TEXT,
				record_count INT,
				success_count INT,
				fail_count INT,
				failed_records JSONB,
				"timestamp" TIMESTAMPTZ DEFAULT NOW()
			)`,
			pgFQN(r.cfg.AuditTable),
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				file_name TEXT PRIMARY KEY,
				processed_at TIMESTAMPTZ DEFAULT NOW()
			)`,
			pgFQN(r.cfg.ProcessedTable),
		),
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ProcessedFiles fetches the whole processed-file registry in one query.
func (r *Repository) ProcessedFiles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT file_name FROM %s`, pgFQN(r.cfg.ProcessedTable)))
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

// CommitFile persists one file's batch inside a single transaction. Record
// inserts conflict-tolerantly no-op on an existing fingerprint; the returned
// count covers rows actually inserted.
func (r *Repository) CommitFile(ctx context.Context, b storage.FileBatch) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			// Rollback after a successful commit is a no-op; anything else is
			// already reflected in the returned error.
			_ = rbErr
		}
	}()

	batch := &pgx.Batch{}
	for _, row := range b.Rows {
		batch.Queue(r.insertSQL, insertArgs(row)...)
	}
	batch.Queue(
		fmt.Sprintf(
			`INSERT INTO %s (file_name, record_count, success_count, fail_count, failed_records)
			 VALUES ($1, $2, $3, $4, $5)`,
			pgFQN(r.cfg.AuditTable),
		),
		b.Audit.FileName, b.Audit.Total, b.Audit.Accepted, b.Audit.Rejected, jsonArg(b.Audit.Payload),
	)
	if b.MarkProcessed {
		batch.Queue(
			fmt.Sprintf(
				`INSERT INTO %s (file_name) VALUES ($1)
				 ON CONFLICT (file_name) DO UPDATE SET processed_at = NOW()`,
				pgFQN(r.cfg.ProcessedTable),
			),
			b.FileName,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted int64
	var execErr error
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			execErr = err
			break
		}
		if i < len(b.Rows) {
			inserted += ct.RowsAffected()
		}
	}
	if err := br.Close(); err != nil && execErr == nil {
		execErr = err
	}
	if execErr != nil {
		return 0, fmt.Errorf("commit file %s: %w", b.FileName, execErr)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit file %s: %w", b.FileName, err)
	}
	return inserted, nil
}

// buildInsertSQL renders the conflict-tolerant insert for the data table.
func buildInsertSQL(table string) string {
	cols := make([]string, 0, records.NumColumns+1)
	ph := make([]string, 0, records.NumColumns+1)
	for i, c := range records.Columns {
		cols = append(cols, pgIdent(c))
		ph = append(ph, fmt.Sprintf("$%d", i+1))
	}
	cols = append(cols, `"uuid"`)
	ph = append(ph, fmt.Sprintf("$%d", records.NumColumns+1))
	return fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT ("uuid") DO NOTHING`,
		pgFQN(table), strings.Join(cols, ", "), strings.Join(ph, ", "),
	)
}

// insertArgs flattens a row into positional arguments; nil fields map to NULL.
func insertArgs(row storage.Row) []any {
	vals := row.Values()
	args := make([]any, 0, len(vals)+1)
	for _, v := range vals {
		args = append(args, v)
	}
	return append(args, row.UUID)
}

// jsonArg adapts an optional JSON payload for a JSONB parameter.
func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.rtdas_ingest"
// to "public"."rtdas_ingest". Without a dot it returns one quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
