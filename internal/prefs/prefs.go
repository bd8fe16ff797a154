// Package prefs stores the widget's boolean preferences in a TOML file.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileStore keeps preferences in memory and rewrites the file on each change.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]bool
}

type document struct {
	Preferences map[string]bool `toml:"preferences"`
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]bool)}
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading preferences %s: %w", path, err)
	}
	for k, v := range doc.Preferences {
		s.values[k] = v
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// GetBool reports the stored value, false when absent.
func (s *FileStore) GetBool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// SetBool stores *value, or removes key when value is nil, and saves.
func (s *FileStore) SetBool(key string, value *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.values, key)
	} else {
		s.values[key] = *value
	}
	return s.save()
}

func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(document{Preferences: s.values}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

// Memory is an in-memory store.
type Memory map[string]bool

// GetBool implements the preference collaborator.
func (m Memory) GetBool(key string) bool { return m[key] }

// SetBool implements the preference collaborator.
func (m Memory) SetBool(key string, value *bool) error {
	if value == nil {
		delete(m, key)
		return nil
	}
	m[key] = *value
	return nil
}
