// Package pipeline runs the full per-file ingest sequence: decode,
// reconcile, validate, fingerprint, and a single transactional commit.
//
// One file is one unit of work with one outcome. Nothing in here panics a
// run or aborts a sibling file; every failure mode folds into the returned
// FileResult.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/Rohit-Borah/NHP-API/internal/decoder"
	"github.com/Rohit-Borah/NHP-API/internal/fingerprint"
	"github.com/Rohit-Borah/NHP-API/internal/metrics"
	"github.com/Rohit-Borah/NHP-API/internal/schema"
	"github.com/Rohit-Borah/NHP-API/internal/storage"
	"github.com/Rohit-Borah/NHP-API/internal/validate"
)

// maxPayloadRecords caps how many rejected records are archived per file.
// Tokenize errors are always archived in full; the cap only bounds the
// per-record maps so a pathological file cannot bloat the audit table.
const maxPayloadRecords = 200

// Result is the complete outcome of one file-processing attempt.
type Result struct {
	File     string
	Accepted int   // records that passed validation
	Rejected int   // bad lines plus records that failed validation
	Dupes    int   // exact duplicates dropped before the commit
	Inserted int64 // rows the store actually added
	Err      error // non-nil only for infrastructure failures
}

// Completed reports whether the file finished processing, regardless of how
// many of its records survived.
func (r Result) Completed() bool { return r.Err == nil }

// ProcessFile ingests one file against repo. retryQuarantined controls the
// fully-quarantined case: when every record is rejected, true leaves the file
// unmarked so a later run retries it, false marks it processed anyway.
//
// Read or commit failures surface in Result.Err and leave the file unmarked;
// the next run picks it up again. A panic anywhere in the sequence is
// contained to this file.
func ProcessFile(ctx context.Context, repo storage.Repository, path string, retryQuarantined bool) (res Result) {
	name := filepath.Base(path)
	res.File = name
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("process %s: panic: %v", name, p)
		}
		if res.Err != nil {
			metrics.RecordFile("failed")
		} else {
			metrics.RecordFile("completed")
		}
	}()

	start := time.Now()
	dec, err := decoder.DecodeFile(path)
	metrics.RecordStep("decode", err, time.Since(start))
	if err != nil {
		res.Err = err
		return res
	}

	start = time.Now()
	recs := schema.Reconcile(dec.Rows)
	metrics.RecordStep("reconcile", nil, time.Since(start))

	start = time.Now()
	accepted, rejected := validate.Partition(recs)
	metrics.RecordStep("validate", nil, time.Since(start))

	res.Accepted = len(accepted)
	res.Rejected = len(rejected) + len(dec.Bad)
	metrics.RecordRows("accepted", int64(res.Accepted))
	metrics.RecordRows("rejected", int64(len(rejected)))
	metrics.RecordRows("tokenize_errors", int64(len(dec.Bad)))

	seen := fingerprint.NewSeen(len(accepted))
	rows := make([]storage.Row, 0, len(accepted))
	for i := range accepted {
		if !seen.Observe(&accepted[i]) {
			res.Dupes++
			continue
		}
		rows = append(rows, storage.Row{
			Record: accepted[i],
			UUID:   fingerprint.Sum(&accepted[i]),
		})
	}

	payload, err := auditPayload(dec.Bad, rejected)
	if err != nil {
		res.Err = fmt.Errorf("process %s: encode audit payload: %w", name, err)
		return res
	}

	batch := storage.FileBatch{
		FileName: name,
		Rows:     rows,
		Audit: storage.Audit{
			FileName: name,
			Total:    res.Accepted + res.Rejected,
			Accepted: res.Accepted,
			Rejected: res.Rejected,
			Payload:  payload,
		},
		// A file that yielded nothing acceptable is quarantined: it still gets
		// its audit row, but the processed marker is policy-dependent.
		MarkProcessed: res.Accepted > 0 || !retryQuarantined,
	}

	start = time.Now()
	res.Inserted, err = repo.CommitFile(ctx, batch)
	metrics.RecordStep("persist", err, time.Since(start))
	if err != nil {
		res.Err = err
		return res
	}
	metrics.RecordRows("inserted", res.Inserted)

	if res.Rejected > 0 {
		log.Printf("level=warn file=%s msg=\"rejected records archived\" rejected=%d bad_lines=%d",
			name, len(rejected), len(dec.Bad))
	}
	return res
}

// auditPayload renders the JSON array archived alongside the audit counts:
// every untokenizable line verbatim, then up to maxPayloadRecords rejected
// records as column maps with their reasons. Returns nil when there is
// nothing to archive.
func auditPayload(bad []decoder.BadLine, rejected []validate.Rejected) ([]byte, error) {
	if len(bad) == 0 && len(rejected) == 0 {
		return nil, nil
	}

	entries := make([]map[string]any, 0, len(bad)+len(rejected))
	for _, b := range bad {
		entries = append(entries, map[string]any{
			"error": "tokenize",
			"line":  b.Line,
			"raw":   b.Raw,
		})
	}
	for i, rej := range rejected {
		if i >= maxPayloadRecords {
			entries = append(entries, map[string]any{
				"error":   "truncated",
				"omitted": len(rejected) - maxPayloadRecords,
			})
			break
		}
		entry := map[string]any{"error": rej.Reason}
		for col, v := range rej.Record.Map() {
			if v != nil {
				entry[col] = *v
			}
		}
		entries = append(entries, entry)
	}
	return json.Marshal(entries)
}
