package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
)

// Store keeps model documents as files under a directory, one per model name
type Store struct {
	dir string
}

// NewStore creates a new document store
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory backing the store
func (s *Store) Dir() string {
	return s.dir
}

// Load reads and validates the document stored under name
func (s *Store) Load(name string) (*Document, error) {
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads and validates a document from any path
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Decode(data, FormatOf(path))
}

// Save writes doc as <name>.<format>, replacing an earlier file of the same name
func (s *Store) Save(doc *Document, format Format) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := s.Delete(doc.Name); err != nil && !apperrors.IsCategory(err, apperrors.CategoryNotFound) {
		return err
	}

	data, err := Encode(doc, format)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	ext := ".json"
	if format == FormatYAML {
		ext = ".yaml"
	}
	if err := os.WriteFile(filepath.Join(s.dir, doc.Name+ext), data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	return nil
}

// Delete removes the document stored under name
func (s *Store) Delete(name string) error {
	path, err := s.find(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model file: %w", err)
	}
	return nil
}

// List returns the names of all stored documents, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".json" || ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(entry.Name(), ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) find(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", apperrors.NewValidationError("invalid model name", name)
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", apperrors.NewNotFoundError("model", name)
}
