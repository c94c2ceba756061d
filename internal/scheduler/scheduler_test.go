package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Rohit-Borah/NHP-API/internal/storage"
)

type fakeRepo struct {
	mu        sync.Mutex
	uuids     map[string]struct{}
	processed map[string]struct{}
	committed []string

	processedErr error
}

func newFakeRepo(processed ...string) *fakeRepo {
	f := &fakeRepo{
		uuids:     map[string]struct{}{},
		processed: map[string]struct{}{},
	}
	for _, name := range processed {
		f.processed[name] = struct{}{}
	}
	return f
}

func (f *fakeRepo) EnsureSchema(context.Context) error { return nil }
func (f *fakeRepo) Close()                             {}

func (f *fakeRepo) ProcessedFiles(context.Context) (map[string]struct{}, error) {
	if f.processedErr != nil {
		return nil, f.processedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.processed))
	for k := range f.processed {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeRepo) CommitFile(_ context.Context, b storage.FileBatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inserted int64
	for _, row := range b.Rows {
		if _, dup := f.uuids[row.UUID]; dup {
			continue
		}
		f.uuids[row.UUID] = struct{}{}
		inserted++
	}
	f.committed = append(f.committed, b.FileName)
	return inserted, nil
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const stationCSV = "StationID,DateTime\n&1A2B3C4D,15-08-2024 10:30\n"

func TestRunSkipsProcessedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", stationCSV)
	writeCSV(t, dir, "b.csv", "StationID,DateTime\n&DEADBEEF,16-08-2024 11:00\n")

	repo := newFakeRepo("a.csv")
	sum, err := Run(context.Background(), repo, Options{Folder: dir, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Skipped != 1 || sum.Files != 1 {
		t.Fatalf("skipped=%d files=%d, want 1/1", sum.Skipped, sum.Files)
	}
	if len(repo.committed) != 1 || repo.committed[0] != "b.csv" {
		t.Errorf("committed = %v, want only b.csv", repo.committed)
	}
}

func TestRunDegradesWhenRegistryUnavailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", stationCSV)
	writeCSV(t, dir, "b.csv", "StationID,DateTime\n&DEADBEEF,16-08-2024 11:00\n")

	repo := newFakeRepo("a.csv")
	repo.processedErr = errors.New("registry table dropped")

	sum, err := Run(context.Background(), repo, Options{Folder: dir})
	if err != nil {
		t.Fatalf("a registry failure must not abort the run: %v", err)
	}
	if sum.Files != 2 || sum.Skipped != 0 {
		t.Fatalf("files=%d skipped=%d, want all files processed", sum.Files, sum.Skipped)
	}
	if len(repo.committed) != 2 {
		t.Errorf("committed = %v, want both files", repo.committed)
	}
}

func TestRunAggregatesSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "good.csv", stationCSV)
	writeCSV(t, dir, "mixed.csv", "StationID,DateTime\n"+
		"&DEADBEEF,16-08-2024 11:00\n"+
		"nope,16-08-2024 11:00\n")

	sum, err := Run(context.Background(), newFakeRepo(), Options{Folder: dir, Workers: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 2 || sum.Failed != 0 {
		t.Fatalf("files=%d failed=%d, want 2/0", sum.Files, sum.Failed)
	}
	if sum.Accepted != 2 || sum.Rejected != 1 || sum.Inserted != 2 {
		t.Errorf("accepted=%d rejected=%d inserted=%d, want 2/1/2", sum.Accepted, sum.Rejected, sum.Inserted)
	}
	if len(sum.Results) != 2 {
		t.Errorf("results = %d, want one per dispatched file", len(sum.Results))
	}
}

func TestRunFiltersByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "data.CSV", stationCSV) // extension match is case-insensitive
	writeCSV(t, dir, "notes.txt", "ignore me")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	sum, err := Run(context.Background(), repo, Options{Folder: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 1 {
		t.Fatalf("files = %d, want only data.CSV", sum.Files)
	}
	if len(repo.committed) != 1 || repo.committed[0] != "data.CSV" {
		t.Errorf("committed = %v", repo.committed)
	}
}

func TestRunEmptyFolder(t *testing.T) {
	t.Parallel()

	sum, err := Run(context.Background(), newFakeRepo(), Options{Folder: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 0 || sum.Skipped != 0 {
		t.Errorf("summary = %+v, want empty", sum)
	}
}

func TestRunMissingFolder(t *testing.T) {
	t.Parallel()

	if _, err := Run(context.Background(), newFakeRepo(), Options{Folder: filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("a missing folder is an infrastructure error")
	}
}

func TestDefaultWorkers(t *testing.T) {
	t.Parallel()

	n := DefaultWorkers()
	if n < 1 || n > 4 {
		t.Errorf("DefaultWorkers() = %d, want within [1, 4]", n)
	}
}
