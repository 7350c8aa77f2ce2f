// Package settings persists the user-facing configuration of the
// pipeline: the folder holding template notes.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/conneroisu/autotemplar/internal/vault"
)

// Settings is the persisted key-value configuration.
type Settings struct {
	// TemplatesFolder is the vault-relative folder holding template notes.
	// Empty disables the pipeline.
	TemplatesFolder string `json:"autotagTemplatesFolder"`
}

// Default returns the settings used when nothing has been saved.
func Default() Settings {
	return Settings{TemplatesFolder: ""}
}

// CleanFolder normalises a folder value typed by the user: slash separated, no
// leading or trailing slash.
func CleanFolder(folder string) string {
	return vault.NormalizePath(folder)
}

// Store loads and saves settings.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileStore keeps settings in a JSON file. Keys written by other tools are
// preserved across saves.
type FileStore struct {
	Path string

	mu    sync.Mutex
	extra map[string]json.RawMessage
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the settings file and merges it over the defaults. A missing
// file yields the defaults.
func (s *FileStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := Default()
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Default(), fmt.Errorf("failed to parse settings file: %w", err)
	}
	delete(raw, "autotagTemplatesFolder")
	s.extra = raw

	settings.TemplatesFolder = CleanFolder(settings.TemplatesFolder)
	return settings, nil
}

// Save writes the settings atomically, creating the parent directory.
func (s *FileStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.TemplatesFolder = CleanFolder(settings.TemplatesFolder)

	out := make(map[string]interface{}, len(s.extra)+1)
	for key, value := range s.extra {
		out[key] = value
	}
	out["autotagTemplatesFolder"] = settings.TemplatesFolder

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := atomic.WriteFile(s.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu       sync.Mutex
	settings Settings
	saves    int
}

// NewMemoryStore returns a store holding settings.
func NewMemoryStore(settings Settings) *MemoryStore {
	return &MemoryStore{settings: settings}
}

// Load implements Store.
func (m *MemoryStore) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

// Save implements Store.
func (m *MemoryStore) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings.TemplatesFolder = CleanFolder(settings.TemplatesFolder)
	m.settings = settings
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
