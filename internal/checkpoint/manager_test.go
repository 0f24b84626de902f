package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/huyngo/docpress/internal/core/domain"
)

func newTestManager(cfg ManagerConfig) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, cfg, testLogger()), store
}

func TestManager_RetentionCap(t *testing.T) {
	mgr, store := newTestManager(ManagerConfig{MaxPerBatch: 10})
	ctx := context.Background()

	var ids []domain.CheckpointID
	for i := 0; i < 12; i++ {
		id, err := mgr.Save(ctx, testState("batch_1_abc"))
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		ids = append(ids, id)
	}

	if store.Len() != 10 {
		t.Fatalf("expected 10 retained records, got %d", store.Len())
	}

	// The two oldest are gone, the newest ten remain.
	for _, id := range ids[:2] {
		if _, err := store.Load(ctx, id); err == nil {
			t.Errorf("expected oldest record %s evicted", id.String())
		}
	}
	for _, id := range ids[2:] {
		if _, err := store.Load(ctx, id); err != nil {
			t.Errorf("expected record %s retained: %v", id.String(), err)
		}
	}
}

func TestManager_LoadLatestPicksNewest(t *testing.T) {
	mgr, _ := newTestManager(DefaultManagerConfig())
	ctx := context.Background()

	first := testState("batch_1_abc")
	first.ProcessedFiles = 1
	if _, err := mgr.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := testState("batch_1_abc")
	second.ProcessedFiles = 2
	if _, err := mgr.Save(ctx, second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := mgr.LoadLatest(ctx, "batch_1_abc")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a checkpoint")
	}
	if got.ProcessedFiles != 2 {
		t.Errorf("expected the newest snapshot, got processed=%d", got.ProcessedFiles)
	}
}

func TestManager_LoadLatestSkipsCorrupt(t *testing.T) {
	mgr, store := newTestManager(DefaultManagerConfig())
	ctx := context.Background()

	good := testState("batch_1_abc")
	good.ProcessedFiles = 1
	if _, err := mgr.Save(ctx, good); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	bad := testState("batch_1_abc")
	bad.ProcessedFiles = 2
	badID, err := mgr.Save(ctx, bad)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Corrupt(badID)

	got, err := mgr.LoadLatest(ctx, "batch_1_abc")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected fallback to the older snapshot")
	}
	if got.ProcessedFiles != 1 {
		t.Errorf("expected the older good snapshot, got processed=%d", got.ProcessedFiles)
	}

	// The corrupt record is discarded for good.
	if _, err := store.Load(ctx, badID); err == nil {
		t.Error("expected corrupt record to be deleted")
	}
}

func TestManager_LoadLatestNoCheckpoints(t *testing.T) {
	mgr, _ := newTestManager(DefaultManagerConfig())

	got, err := mgr.LoadLatest(context.Background(), "batch_none")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil state, got %+v", got)
	}
}

func TestManager_ShouldAutoSave(t *testing.T) {
	mgr, _ := newTestManager(ManagerConfig{AutoSaveInterval: 30 * time.Second})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	// No save recorded yet: always due.
	if !mgr.ShouldAutoSave("batch_1_abc") {
		t.Error("first save must always be due")
	}

	if _, err := mgr.Save(context.Background(), testState("batch_1_abc")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	now = now.Add(10 * time.Second)
	if mgr.ShouldAutoSave("batch_1_abc") {
		t.Error("save must not be due 10s after the last one")
	}

	now = now.Add(25 * time.Second)
	if !mgr.ShouldAutoSave("batch_1_abc") {
		t.Error("save must be due after the interval elapses")
	}
}

func TestManager_Forget(t *testing.T) {
	mgr, _ := newTestManager(ManagerConfig{AutoSaveInterval: time.Hour})

	if _, err := mgr.Save(context.Background(), testState("batch_1_abc")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if mgr.ShouldAutoSave("batch_1_abc") {
		t.Fatal("save just happened, must not be due")
	}

	mgr.Forget("batch_1_abc")
	if !mgr.ShouldAutoSave("batch_1_abc") {
		t.Error("forgotten batch must be due again")
	}
}

func TestManager_Sweep(t *testing.T) {
	mgr, store := newTestManager(ManagerConfig{MaxAge: time.Nanosecond})
	ctx := context.Background()

	if _, err := mgr.Save(ctx, testState("batch_1_abc")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	n, err := mgr.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 swept record, got %d", n)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d records", store.Len())
	}
}
