// Package settings persists engine configuration as a schema-versioned JSON
// document under the data directory.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const schemaVersion = 1

const (
	defaultRetryTimes        = 5
	defaultMaxBatchLines     = 200
	defaultMaxParallelSlides = 4
)

type Settings struct {
	SchemaVersion int `json:"schema_version"`

	// RetryTimes is the retry budget the external agent loop reads back;
	// the executor itself never retries.
	RetryTimes int `json:"retry_times"`

	// MaxBatchLines caps the size of one command batch.
	MaxBatchLines int `json:"max_batch_lines"`

	// MaxParallelSlides bounds concurrent edit sessions in EditAll.
	MaxParallelSlides int `json:"max_parallel_slides"`

	// DiagnosticsEnabled controls the sqlite diagnostics store.
	DiagnosticsEnabled bool `json:"diagnostics_enabled"`

	// AssetRoot jails image paths named in commands. Empty disables the
	// jail.
	AssetRoot string `json:"asset_root,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	backfill(&settings)
	return &settings, nil
}

func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfill(settings)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(settings)
	return settings, s.Save(settings)
}

// Default returns the built-in settings, for callers running without a
// settings file.
func Default() *Settings {
	return defaultSettings()
}

func defaultSettings() *Settings {
	return &Settings{
		SchemaVersion:      schemaVersion,
		RetryTimes:         defaultRetryTimes,
		MaxBatchLines:      defaultMaxBatchLines,
		MaxParallelSlides:  defaultMaxParallelSlides,
		DiagnosticsEnabled: true,
	}
}

func backfill(settings *Settings) {
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = schemaVersion
	}
	if settings.RetryTimes <= 0 {
		settings.RetryTimes = defaultRetryTimes
	}
	if settings.MaxBatchLines <= 0 {
		settings.MaxBatchLines = defaultMaxBatchLines
	}
	if settings.MaxParallelSlides <= 0 {
		settings.MaxParallelSlides = defaultMaxParallelSlides
	}
}
