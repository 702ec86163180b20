package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestFileStoreLoadsNamedDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "retail.txt", "tables: sales(store, total)")

	store, err := NewFileStore(dir, "metadata.txt")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	content, err := store.Load(context.Background(), "retail.txt")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if content != "tables: sales(store, total)" {
		t.Fatalf("content = %q", content)
	}
}

func TestFileStoreEmptyNameUsesDefault(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "metadata.txt", "default schema")

	store, err := NewFileStore(dir, "metadata.txt")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	content, err := store.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if content != "default schema" {
		t.Fatalf("content = %q", content)
	}
}

func TestFileStoreMissingDocument(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "metadata.txt")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, err = store.Load(context.Background(), "missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "empty.txt", "   \n\t ")

	store, err := NewFileStore(dir, "metadata.txt")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "empty.txt"); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "metadata.txt")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	for _, name := range []string{"../etc/passwd", "a/../../b", "dir/file.txt", ".."} {
		if _, err := store.Load(context.Background(), name); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}

func TestNewFileStoreValidation(t *testing.T) {
	if _, err := NewFileStore("", "metadata.txt"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := NewFileStore(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty default name")
	}
}
