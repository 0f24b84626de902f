package checkpoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testState(batchID string) *domain.BatchState {
	start := time.Now()
	return &domain.BatchState{
		BatchID:        batchID,
		InputDir:       "docs",
		OutputDir:      "output",
		TotalFiles:     3,
		ProcessedFiles: 1,
		StartTime:      start,
		Files: map[string]*domain.FileProgress{
			"a.md": {Path: "a.md", Status: domain.StatusSuccess, Duration: time.Second, Size: 512},
			"b.md": {Path: "b.md", Status: domain.StatusPending},
		},
		CheckpointType: domain.CheckpointFileProcessed,
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	state := testState("batch_1_abc")
	id, err := store.Save(ctx, state)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id.BatchID != "batch_1_abc" || id.Type != domain.CheckpointFileProcessed {
		t.Errorf("unexpected identifier %+v", id)
	}

	got, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.BatchID != state.BatchID {
		t.Errorf("expected batch %s, got %s", state.BatchID, got.BatchID)
	}
	if got.ProcessedFiles != 1 || got.TotalFiles != 3 {
		t.Errorf("counters not preserved: %+v", got)
	}
	fp, ok := got.Files["a.md"]
	if !ok {
		t.Fatal("per-item state lost")
	}
	if fp.Status != domain.StatusSuccess || fp.Size != 512 {
		t.Errorf("item state not preserved: %+v", fp)
	}
}

func TestFileStore_LoadUnknownID(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), testLogger())

	_, err := store.Load(context.Background(), domain.CheckpointID{
		BatchID: "nope", Timestamp: 1, Type: domain.CheckpointBatchStart,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestFileStore_ListAscending(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), testLogger())
	ctx := context.Background()

	var ids []domain.CheckpointID
	for i := 0; i < 3; i++ {
		id, err := store.Save(ctx, testState("batch_1_abc"))
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		ids = append(ids, id)
	}
	// Unrelated batch must not appear.
	if _, err := store.Save(ctx, testState("batch_2_def")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	listed, err := store.List(ctx, "batch_1_abc")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 records, got %d", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].Timestamp < listed[i-1].Timestamp {
			t.Error("list must be ordered oldest first")
		}
	}
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir, testLogger())
	ctx := context.Background()

	id, err := store.Save(ctx, testState("batch_1_abc"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, id); err == nil {
		t.Error("expected load to fail after delete")
	}

	listed, _ := store.List(ctx, "batch_1_abc")
	if len(listed) != 0 {
		t.Errorf("expected empty list, got %d", len(listed))
	}
}

func TestFileStore_SweepOlderThan(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), testLogger())
	ctx := context.Background()

	if _, err := store.Save(ctx, testState("batch_1_abc")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A future cutoff removes everything, a past one removes nothing.
	n, err := store.SweepOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Errorf("expected no removals, got n=%d err=%v", n, err)
	}
	n, err = store.SweepOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removal, got %d", n)
	}
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir, testLogger())

	for i := 0; i < 5; i++ {
		if _, err := store.Save(context.Background(), testState("batch_1_abc")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileStore_CorruptRecordIsInvalidData(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir, testLogger())
	ctx := context.Background()

	id, err := store.Save(ctx, testState("batch_1_abc"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Truncate the record on disk to simulate a torn write from a crash.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() == manifestName {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), []byte(`{"batch_id": "ba`), 0o644); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
	}

	_, err = store.Load(ctx, id)
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected invalid-data error, got %v", err)
	}
}
