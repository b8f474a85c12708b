package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/tessera/internal/apperr"
	"github.com/starford/tessera/internal/checksum"
	"github.com/starford/tessera/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the documents directory
}

// NewFS creates a new FS provider rooted at the given directory, creating it
// when missing.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute documents directory.
func (f *FS) Root() string { return f.root }

// IDFromPath returns the document id for a file name under the root, or
// false when the name is not a stored document.
func IDFromPath(p string) (string, bool) {
	name := filepath.Base(p)
	if !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, Ext), true
}

// path maps an id to its file and rejects ids that would leave the root.
func (f *FS) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("storage: invalid document id %q", id)
	}
	abs := filepath.Join(f.root, id+Ext)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", id)
	}
	return abs, nil
}

// List returns metadata for every document file in the root.
func (f *FS) List() ([]models.DocumentMetadata, error) {
	var out []models.DocumentMetadata
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root {
				return filepath.SkipDir
			}
			return nil
		}
		id, ok := IDFromPath(p)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, models.DocumentMetadata{
			ID:        id,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a document.
func (f *FS) Read(id string) ([]byte, error) {
	abs, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", id, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(id string, content []byte) error {
	abs, err := f.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".tessera-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a document file.
func (f *FS) Delete(id string) error {
	abs, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}
