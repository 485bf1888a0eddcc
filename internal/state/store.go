package state

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/btouchard/midicue/internal/mapping"
)

// FileName is the configuration file kept in the user's home directory.
const FileName = ".midi_pushover_config.json"

// ErrConfigLoad matches any *LoadError.
var ErrConfigLoad = errors.New("config load failed")

// LoadError reports why the configuration on disk could not be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrConfigLoad, e.Err} }

// DefaultPath returns the fixed per-user configuration location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// FileStore is the file-backed configuration store. Every mutation is written
// through to disk before the call returns.
type FileStore struct {
	path string

	mu  sync.RWMutex
	doc Document
}

// NewFileStore creates a store for path holding the default document until Load runs.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, doc: Default()}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the document from disk. When the file is missing or invalid the
// default document is kept, written back, and a *LoadError is returned.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err == nil {
		var doc Document
		doc, err = Decode(data)
		if err == nil {
			s.mu.Lock()
			s.doc = doc
			s.mu.Unlock()
			slog.Debug("config loaded", "path", s.path, "mappings", doc.Mappings.Len())
			return nil
		}
	}

	loadErr := &LoadError{Path: s.path, Err: err}
	slog.Warn("config unusable, falling back to defaults", "path", s.path, "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = Default()
	if werr := s.writeLocked(); werr != nil {
		return errors.Join(loadErr, werr)
	}
	return loadErr
}

// Credentials returns the stored Pushover user key and API token.
func (s *FileStore) Credentials() (userKey, apiToken string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.UserKey, s.doc.APIToken
}

// SetCredentials stores new Pushover credentials.
func (s *FileStore) SetCredentials(userKey, apiToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevUser, prevToken := s.doc.UserKey, s.doc.APIToken
	s.doc.UserKey, s.doc.APIToken = userKey, apiToken
	if err := s.writeLocked(); err != nil {
		s.doc.UserKey, s.doc.APIToken = prevUser, prevToken
		return err
	}
	return nil
}

// SelectedDevice returns the last connected device, or "" if none.
func (s *FileStore) SelectedDevice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.SelectedDevice == nil {
		return ""
	}
	return *s.doc.SelectedDevice
}

// SetSelectedDevice records the device to reconnect to at startup.
func (s *FileStore) SetSelectedDevice(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.SelectedDevice
	s.doc.SelectedDevice = &name
	if err := s.writeLocked(); err != nil {
		s.doc.SelectedDevice = prev
		return err
	}
	return nil
}

// Mappings returns the stored note mappings in file order.
func (s *FileStore) Mappings() []mapping.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toMappings(s.doc.Mappings)
}

// PersistMappings replaces the stored mappings and writes the document.
func (s *FileStore) PersistMappings(ms []mapping.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.Mappings
	s.doc.Mappings = fromMappings(ms)
	if err := s.writeLocked(); err != nil {
		s.doc.Mappings = prev
		return err
	}
	return nil
}

// writeLocked replaces the file atomically. The caller holds s.mu.
func (s *FileStore) writeLocked() error {
	data, err := Encode(s.doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".midicue-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}
