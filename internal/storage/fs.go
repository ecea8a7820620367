package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/thoughtmap/internal/apperr"
	"github.com/starford/thoughtmap/internal/checksum"
)

// tmpPattern names in-flight writes. The leading dot keeps them out of List
// and away from the watcher.
const tmpPattern = ".thoughtmap-tmp-*"

// FS is a Provider over a directory of thought documents.
type FS struct {
	root string // absolute
}

// NewFS opens the vault at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
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

// IsDocument reports whether name is a visible thought document.
func IsDocument(name string) bool {
	return strings.HasSuffix(name, Ext) && !strings.HasPrefix(filepath.Base(name), ".")
}

// abs maps a vault-relative path to disk. Absolute paths and paths that climb
// out of the vault are rejected.
func (f *FS) abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("storage: absolute path %s: %w", rel, apperr.ErrInvalid)
	}
	p := filepath.Join(f.root, clean)
	if p != f.root && !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path %s leaves the vault: %w", rel, apperr.ErrInvalid)
	}
	return p, nil
}

// pathErr wraps err for op on rel, mapping a missing file to ErrNotFound.
func pathErr(op, rel string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w", op, rel, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s %s: %w", op, rel, err)
}

// List returns every thought document under dir, sorted by path, with the
// checksum of its current content.
func (f *FS) List(dir string) ([]DocumentMetadata, error) {
	base, err := f.abs(dir)
	if err != nil {
		return nil, err
	}
	var docs []DocumentMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsDocument(d.Name()) {
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
		rel, _ := filepath.Rel(f.root, p)
		docs = append(docs, DocumentMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Read returns a document's bytes.
func (f *FS) Read(path string) ([]byte, error) {
	p, err := f.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, pathErr("read", path, err)
	}
	return data, nil
}

// Write replaces path with content. Readers see either the old or the new
// document, never a partial one.
func (f *FS) Write(path string, content []byte) (err error) {
	p, err := f.abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pathErr("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return pathErr("create temp for", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return pathErr("write", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return pathErr("sync", path, err)
	}
	if err = tmp.Close(); err != nil {
		return pathErr("close", path, err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return pathErr("replace", path, err)
	}
	return nil
}

// Delete removes a document.
func (f *FS) Delete(path string) error {
	p, err := f.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return pathErr("delete", path, err)
	}
	return nil
}

// Move renames a document. An existing document at newPath is never
// overwritten.
func (f *FS) Move(oldPath, newPath string) error {
	from, err := f.abs(oldPath)
	if err != nil {
		return err
	}
	to, err := f.abs(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(from); err != nil {
		return pathErr("move", oldPath, err)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("storage: move to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return pathErr("mkdir", newPath, err)
	}
	if err := os.Rename(from, to); err != nil {
		return pathErr("move", oldPath, err)
	}
	return nil
}
