package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"plancore/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutOpenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/r1/comparison.json", strings.NewReader(`{"ok":true}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"scenario_a": "base"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 11 || info.ContentType != "application/json" {
		t.Fatalf("info = %+v", info)
	}

	got, rc, err := store.Open(ctx, "reports/r1/comparison.json")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("data = %s", data)
	}
	if got.Metadata["scenario_a"] != "base" {
		t.Fatalf("metadata = %v", got.Metadata)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("first"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("second"), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	info, err := store.Stat(ctx, "k")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != int64(len("second")) {
		t.Fatalf("size = %d after overwrite", info.Size)
	}
}

func TestMissingKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Stat(ctx, "nope"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("stat err = %v, want ErrNotExist", err)
	}
	if _, _, err := store.Open(ctx, "nope"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("open err = %v, want ErrNotExist", err)
	}
	deleted, err := store.Delete(ctx, "nope")
	if err != nil || deleted {
		t.Fatalf("delete missing = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	deleted, err := store.Delete(ctx, "k")
	if err != nil || !deleted {
		t.Fatalf("delete = (%v, %v)", deleted, err)
	}
	if _, err := store.Stat(ctx, "k"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("stat after delete = %v", err)
	}
}

func TestListByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"reports/r1/a.json", "reports/r2/b.json", "other/c.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("listed %d keys, want 2", len(infos))
	}
	if infos[0].Key != "reports/r1/a.json" || infos[1].Key != "reports/r2/b.json" {
		t.Fatalf("keys = %v, %v", infos[0].Key, infos[1].Key)
	}
}

func TestKeySanitization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "  ", "/absolute", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
	// Interior dot segments that stay under root are fine after cleaning.
	if _, err := store.Put(ctx, "a/./b", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("clean key rejected: %v", err)
	}
	if _, err := store.Stat(ctx, "a/b"); err != nil {
		t.Fatalf("cleaned key not stored: %v", err)
	}
}
