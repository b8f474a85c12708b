package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/tessera/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte(`{"id":"doc","blocks":[]}`)
	if err := s.Write("doc", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "doc.json")); err != nil {
		t.Errorf("file not at <id>.json: %v", err)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Read("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del", []byte("{}"))
	if err := s.Delete("del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del"); err == nil {
		t.Error("expected error reading deleted document")
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a", []byte("{}"))
	_ = s.Write("b", []byte("{}"))
	_ = os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("x"), 0o644)
	_ = os.MkdirAll(filepath.Join(s.Root(), "sub"), 0o755)
	_ = os.WriteFile(filepath.Join(s.Root(), "sub", "c.json"), []byte("{}"), 0o644)

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != "a" || items[0].Checksum == "" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	for _, id := range []string{"../../etc/passwd", "../outside", "/etc/shadow", "..", "", ".hidden", `a\b`} {
		if _, err := s.Read(id); err == nil {
			t.Errorf("expected error for id %q", id)
		}
		if err := s.Write(id, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", id)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("atomic", []byte("original"))
	if err := s.Write("atomic", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".tessera-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "tessera-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIDFromPath(t *testing.T) {
	if id, ok := IDFromPath("/x/abc.json"); !ok || id != "abc" {
		t.Errorf("IDFromPath = %q, %v", id, ok)
	}
	for _, p := range []string{"/x/abc.md", "/x/.tessera-tmp-1.json"} {
		if _, ok := IDFromPath(p); ok {
			t.Errorf("IDFromPath(%q) accepted", p)
		}
	}
}
