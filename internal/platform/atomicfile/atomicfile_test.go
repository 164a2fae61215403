package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWrite_CreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "SAA-C03.json")

	if err := Write(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := Write(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestWrite_EmptyPath(t *testing.T) {
	if err := Write("", []byte("x"), 0o644); err == nil {
		t.Fatal("Write() should fail for empty path")
	}
}
