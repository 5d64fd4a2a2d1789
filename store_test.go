package discord

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("missing key", func(t *testing.T) {
		value, ok, err := store.Get(ctx, "absent")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if ok || value != "" {
			t.Errorf("Expected no value, got %q (ok=%t)", value, ok)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := store.Set(ctx, "k", "v"); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		value, ok, err := store.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if !ok || value != "v" {
			t.Errorf("Expected %q, got %q (ok=%t)", "v", value, ok)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		_ = store.Set(ctx, "k", "v2")

		value, _, _ := store.Get(ctx, "k")
		if value != "v2" {
			t.Errorf("Expected %q, got %q", "v2", value)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if _, ok, _ := store.Get(ctx, "k"); ok {
			t.Error("Expected the key to be deleted")
		}
	})

	t.Run("delete missing key is a no-op", func(t *testing.T) {
		if err := store.Delete(ctx, "absent"); err != nil {
			t.Errorf("Unexpected error: %+v", err)
		}
	})
}
