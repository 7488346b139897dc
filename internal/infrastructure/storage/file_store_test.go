package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"NewsRelay/internal/state"
)

func TestFileStoreMissingFileLoadsEmpty(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"), 10)
	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if st.Bootstrapped {
		t.Fatal("fresh state must not be bootstrapped")
	}
	if st.SeenOfficials.Len() != 0 || st.SeenCommunity.Len() != 0 {
		t.Fatal("fresh state must be empty")
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, 10)
	ctx := context.Background()

	st := state.New(10)
	st.SeenOfficials.Add("https://site/news/a")
	st.Handles["https://site/news/a"] = state.Delivery{Handle: "m1"}
	st.Bootstrapped = true

	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Bootstrapped {
		t.Fatal("bootstrapped flag lost")
	}
	if !loaded.SeenOfficials.Contains("https://site/news/a") {
		t.Fatal("seen official lost")
	}
	if loaded.Handles["https://site/news/a"].Handle != "m1" {
		t.Fatalf("handle lost: %+v", loaded.Handles)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "state.json"), 10)

	if err := store.Save(context.Background(), state.New(10)); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestFileStoreCorruptDocumentFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := NewFileStore(path, 10).Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt state document")
	}
}
