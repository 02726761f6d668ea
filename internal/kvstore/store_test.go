package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"igmirror/internal/config"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "instagram_access_token"); err != nil || ok {
		t.Fatalf("expected missing value, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "instagram_access_token", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "instagram_token_updated", "1700000000"); err != nil {
		t.Fatalf("set timestamp: %v", err)
	}
	if err := store.Set(ctx, "instagram_access_token", "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := store.Get(ctx, "instagram_access_token")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != "second" {
		t.Fatalf("expected overwritten value, got %q", value)
	}
	ts, ok, err := store.Get(ctx, "instagram_token_updated")
	if err != nil || !ok || ts != "1700000000" {
		t.Fatalf("unexpected timestamp: %q ok=%v err=%v", ts, ok, err)
	}
}

func exerciseBatch(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	batcher, ok := store.(Batcher)
	if !ok {
		t.Fatalf("%T does not implement Batcher", store)
	}
	err := batcher.SetMany(ctx, map[string]string{
		"instagram_access_token":  "batched",
		"instagram_token_updated": "1800000000",
	})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}
	for name, want := range map[string]string{
		"instagram_access_token":  "batched",
		"instagram_token_updated": "1800000000",
	} {
		got, ok, err := store.Get(ctx, name)
		if err != nil || !ok || got != want {
			t.Fatalf("get %s: got %q ok=%v err=%v, want %q", name, got, ok, err, want)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	exerciseBatch(t, store)
	if len(store.Snapshot()) != 2 {
		t.Fatalf("expected two keys, got %v", store.Snapshot())
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	exerciseStore(t, NewFileStore(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", perm)
	}

	exerciseBatch(t, NewFileStore(path))

	reopened := NewFileStore(path)
	value, ok, err := reopened.Get(context.Background(), "instagram_access_token")
	if err != nil || !ok || value != "batched" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewFileStore(path).Get(context.Background(), "x"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "tokens.db")
	store, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	exerciseStore(t, store)
	exerciseBatch(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(context.Background(), "instagram_access_token")
	if err != nil || !ok || value != "batched" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		backend string
		path    string
	}{
		{config.BackendSQLite, filepath.Join(base, "tokens.db")},
		{config.BackendFile, filepath.Join(base, "tokens.json")},
		{config.BackendMemory, ""},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.TokenStore.Backend = tc.backend
			cfg.TokenStore.Path = tc.path

			store, err := Open(context.Background(), &cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()
			exerciseStore(t, store)
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.TokenStore.Backend = "etcd"
	if _, err := Open(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
