package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.RetryTimes != defaultRetryTimes {
		t.Fatalf("expected default retry times, got %d", settings.RetryTimes)
	}
	if settings.MaxBatchLines != defaultMaxBatchLines {
		t.Fatalf("expected default max batch lines, got %d", settings.MaxBatchLines)
	}
	if !settings.DiagnosticsEnabled {
		t.Fatalf("expected diagnostics enabled by default")
	}

	settings.RetryTimes = 3
	settings.MaxParallelSlides = 8
	settings.AssetRoot = "/runs/42/images"
	if err := store.Save(settings); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.RetryTimes != 3 {
		t.Fatalf("expected retry times 3, got %d", loaded.RetryTimes)
	}
	if loaded.MaxParallelSlides != 8 {
		t.Fatalf("expected max parallel slides 8, got %d", loaded.MaxParallelSlides)
	}
	if loaded.AssetRoot != "/runs/42/images" {
		t.Fatalf("expected asset root to round trip, got %q", loaded.AssetRoot)
	}
	if loaded.SchemaVersion != schemaVersion {
		t.Fatalf("expected schema version %d, got %d", schemaVersion, loaded.SchemaVersion)
	}
}

func TestSettingsBackfill(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "settings.json")
	if err := os.WriteFile(path, []byte(`{"retry_times": 0, "max_batch_lines": -1}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewStore(path)
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.RetryTimes != defaultRetryTimes {
		t.Fatalf("expected retry times backfilled, got %d", settings.RetryTimes)
	}
	if settings.MaxBatchLines != defaultMaxBatchLines {
		t.Fatalf("expected max batch lines backfilled, got %d", settings.MaxBatchLines)
	}
	if settings.MaxParallelSlides != defaultMaxParallelSlides {
		t.Fatalf("expected max parallel slides backfilled, got %d", settings.MaxParallelSlides)
	}
	if settings.SchemaVersion != schemaVersion {
		t.Fatalf("expected schema version backfilled, got %d", settings.SchemaVersion)
	}
}

func TestSettingsUpdate(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "settings.json"))
	updated, err := store.Update(func(s *Settings) {
		s.DiagnosticsEnabled = false
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DiagnosticsEnabled {
		t.Fatalf("expected diagnostics disabled after update")
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.DiagnosticsEnabled {
		t.Fatalf("expected update to persist")
	}
}
