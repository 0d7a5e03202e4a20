package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore persists notebooks as .ipynb files under a root directory.
type DirStore struct {
	root string
}

// NewDirStore creates the root directory if needed and returns a store
// rooted there.
func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve notebook dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create notebook dir: %w", err)
	}
	return &DirStore{root: abs}, nil
}

// Root returns the absolute store root.
func (s *DirStore) Root() string { return s.root }

// resolve maps a client-supplied relative path to an absolute file path,
// forcing the .ipynb extension and rejecting anything escaping the root.
func (s *DirStore) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimLeft(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if !strings.HasSuffix(path, ".ipynb") {
		path += ".ipynb"
	}
	abs := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return abs, nil
}

// List returns the sorted relative paths of all stored notebooks.
func (s *DirStore) List(_ context.Context) ([]string, error) {
	items := []string{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".ipynb") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		items = append(items, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Path: s.root, Err: err}
	}
	sort.Strings(items)
	return items, nil
}

// Get reads the document stored at path, or ErrNotFound if absent.
func (s *DirStore) Get(_ context.Context, path string) (*Document, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return nil, &StoreError{Op: "get", Path: path, Err: err}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StoreError{Op: "get", Path: path, Err: err}
	}
	return &doc, nil
}

// Save overwrites the document at path wholesale.
func (s *DirStore) Save(_ context.Context, path string, doc *Document) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return &StoreError{Op: "save", Path: path, Err: err}
	}
	return nil
}

var _ Store = (*DirStore)(nil)
