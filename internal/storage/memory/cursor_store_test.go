package memory

import (
	"context"
	"errors"
	"testing"

	"auction-relay/internal/storage"
)

func TestCursorStore_GetSet(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.GetCursor(ctx, "poller"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.SetCursor(ctx, "poller", 100); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	if err := store.SetCursor(ctx, "poller", 120); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}

	block, err := store.GetCursor(ctx, "poller")
	if err != nil {
		t.Fatalf("GetCursor failed: %v", err)
	}
	if block != 120 {
		t.Errorf("Expected 120, got %d", block)
	}

	if err := store.SetCursor(ctx, "", 1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
