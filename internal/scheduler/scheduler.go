// Package scheduler discovers candidate telemetry files in a folder and
// drives the per-file pipeline across a bounded worker pool. Files already
// recorded in the processed registry are skipped before dispatch; everything
// else runs exactly once per invocation, each on its own goroutine.
package scheduler

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Rohit-Borah/NHP-API/internal/metrics"
	"github.com/Rohit-Borah/NHP-API/internal/pipeline"
	"github.com/Rohit-Borah/NHP-API/internal/storage"
)

// Options configures one scheduling run.
type Options struct {
	// Folder is the directory scanned for candidate files (non-recursive).
	Folder string

	// Workers bounds concurrent file processing. Zero means DefaultWorkers.
	Workers int

	// RetryQuarantined leaves fully-rejected files unmarked so a later run
	// retries them after the upstream feed is fixed.
	RetryQuarantined bool
}

// Summary aggregates a whole run.
type Summary struct {
	Files    int // files dispatched to the pipeline
	Skipped  int // files skipped via the processed registry
	Failed   int // files that ended in an infrastructure error
	Accepted int
	Rejected int
	Inserted int64
	Results  []pipeline.Result
}

// DefaultWorkers derives the worker-pool size from available parallelism:
// half the CPUs, at least 1, at most 4. The pipeline is I/O bound on the
// store, so more workers mostly add lock contention.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return n
}

// Run scans opts.Folder and processes every eligible file against repo.
//
// The processed registry is advisory: if it cannot be read, the run logs the
// failure and processes everything, relying on fingerprint idempotence to
// make the re-processing harmless. Individual file failures never stop the
// run; they are collected in the summary.
func Run(ctx context.Context, repo storage.Repository, opts Options) (Summary, error) {
	var sum Summary

	candidates, err := discover(opts.Folder)
	if err != nil {
		return sum, err
	}

	processed, err := repo.ProcessedFiles(ctx)
	if err != nil {
		log.Printf("level=warn msg=\"processed registry unavailable, processing all files\" error=%q", err)
		processed = nil
	}

	var todo []string
	for _, path := range candidates {
		if _, done := processed[filepath.Base(path)]; done {
			sum.Skipped++
			metrics.RecordFile("skipped")
			continue
		}
		todo = append(todo, path)
	}
	sum.Files = len(todo)
	if len(todo) == 0 {
		return sum, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	results := make([]pipeline.Result, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range todo {
		g.Go(func() error {
			// Failures stay in the result; returning them would cancel
			// siblings mid-file.
			results[i] = pipeline.ProcessFile(gctx, repo, path, opts.RetryQuarantined)
			return nil
		})
	}
	_ = g.Wait()

	sum.Results = results
	for _, res := range results {
		if res.Err != nil {
			sum.Failed++
			log.Printf("level=error file=%s msg=\"processing failed\" error=%q", res.File, res.Err)
			continue
		}
		sum.Accepted += res.Accepted
		sum.Rejected += res.Rejected
		sum.Inserted += res.Inserted
		log.Printf("level=info file=%s msg=\"processed\" accepted=%d rejected=%d dupes=%d inserted=%d",
			res.File, res.Accepted, res.Rejected, res.Dupes, res.Inserted)
	}
	return sum, nil
}

// discover lists the folder's CSV files (by extension, case-insensitive) in
// name order. Subdirectories are not descended into.
func discover(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			out = append(out, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
