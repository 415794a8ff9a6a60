package persistence

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestMemoryConfidenceStore tests the in-memory confidence store
func TestMemoryConfidenceStore(t *testing.T) {
	store := NewMemoryConfidenceStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		snap := ConfidenceSnapshot{
			AgentID:      "categorizer",
			Confidence:   0.82,
			Capabilities: map[string]float64{"categorize": 0.9},
		}
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx, "categorizer")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Confidence != 0.82 {
			t.Errorf("Confidence mismatch: got %v, want 0.82", got.Confidence)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set on save")
		}
	})

	t.Run("LoadReturnsCopy", func(t *testing.T) {
		got, _ := store.Load(ctx, "categorizer")
		got.Capabilities["categorize"] = 0.1

		again, _ := store.Load(ctx, "categorizer")
		if again.Capabilities["categorize"] != 0.9 {
			t.Errorf("stored snapshot was mutated through a loaded copy")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := store.Save(ctx, ConfidenceSnapshot{AgentID: "categorizer", Confidence: 0.6}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, _ := store.Load(ctx, "categorizer")
		if got.Confidence != 0.6 {
			t.Errorf("Confidence not overwritten: got %v", got.Confidence)
		}
	})

	t.Run("LoadAllSorted", func(t *testing.T) {
		_ = store.Save(ctx, ConfidenceSnapshot{AgentID: "archiver", Confidence: 0.7})
		_ = store.Save(ctx, ConfidenceSnapshot{AgentID: "responder", Confidence: 0.9})

		all, err := store.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 snapshots, got %d", len(all))
		}
		if all[0].AgentID != "archiver" || all[1].AgentID != "categorizer" || all[2].AgentID != "responder" {
			t.Errorf("snapshots not sorted by agent ID: %v, %v, %v", all[0].AgentID, all[1].AgentID, all[2].AgentID)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		if err := store.Save(ctx, ConfidenceSnapshot{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		closed := NewMemoryConfidenceStore()
		_ = closed.Close()
		if err := closed.Save(ctx, ConfidenceSnapshot{AgentID: "a"}); !errors.Is(err, ErrStoreClosed) {
			t.Errorf("Expected ErrStoreClosed, got %v", err)
		}
		if _, err := closed.LoadAll(ctx); !errors.Is(err, ErrStoreClosed) {
			t.Errorf("Expected ErrStoreClosed, got %v", err)
		}
	})
}

// TestMemoryOutcomeStore tests the in-memory outcome log
func TestMemoryOutcomeStore(t *testing.T) {
	store := NewMemoryOutcomeStore()
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, agent := range []string{"categorizer", "responder", "categorizer", "categorizer"} {
		rec := &OutcomeRecord{
			AgentID:   agent,
			Action:    "categorize",
			Outcome:   "success",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if rec.ID == "" {
			t.Error("Append should assign an ID")
		}
	}

	t.Run("ListNewestFirst", func(t *testing.T) {
		records, err := store.List(ctx, "categorizer", 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(records))
		}
		if !records[0].CreatedAt.After(records[1].CreatedAt) {
			t.Errorf("records not ordered newest first")
		}
	})

	t.Run("ListLimit", func(t *testing.T) {
		records, _ := store.List(ctx, "categorizer", 2)
		if len(records) != 2 {
			t.Errorf("Expected 2 records, got %d", len(records))
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		records, _ := store.List(ctx, "", 0)
		if len(records) != 4 {
			t.Errorf("Expected 4 records, got %d", len(records))
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		if err := store.Append(ctx, &OutcomeRecord{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
		if err := store.Append(ctx, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})
}

// TestStoreFactories tests store construction by type
func TestStoreFactories(t *testing.T) {
	ctx := context.Background()

	cs, err := NewConfidenceStore(StoreTypeMemory, nil, nil)
	if err != nil {
		t.Fatalf("NewConfidenceStore(memory) failed: %v", err)
	}
	if _, ok := cs.(*MemoryConfidenceStore); !ok {
		t.Errorf("Expected *MemoryConfidenceStore, got %T", cs)
	}

	if _, err := NewConfidenceStore(StoreTypeRedis, nil, nil); err == nil {
		t.Error("redis confidence store without a cache manager should fail")
	}
	if _, err := NewConfidenceStore(StoreTypeGorm, nil, nil); err == nil {
		t.Error("gorm is not a confidence store type")
	}

	outcomes, err := NewOutcomeStore(ctx, "", nil, nil)
	if err != nil {
		t.Fatalf("NewOutcomeStore(default) failed: %v", err)
	}
	if _, ok := outcomes.(*MemoryOutcomeStore); !ok {
		t.Errorf("Expected *MemoryOutcomeStore, got %T", outcomes)
	}

	if _, err := NewOutcomeStore(ctx, StoreTypeGorm, nil, nil); err == nil {
		t.Error("gorm outcome store without a database pool should fail")
	}
	if _, err := NewOutcomeStore(ctx, StoreTypeRedis, nil, nil); err == nil {
		t.Error("redis is not an outcome store type")
	}
}
