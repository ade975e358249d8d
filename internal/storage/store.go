package storage

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"autotimer/internal/core/model"
)

// ErrMalformed marks an import document that could not be decoded.
var ErrMalformed = errors.New("malformed settings document")

// ChangeFunc observes a settings change.
type ChangeFunc func(previous, current model.Settings)

// Store holds the live settings, persists them to YAML and notifies
// listeners on every change. It implements model.SettingsSource.
type Store struct {
	mu        sync.RWMutex
	path      string
	settings  model.Settings
	logger    *slog.Logger
	listeners []ChangeFunc
}

// Open loads the settings file at path. A missing file yields the defaults.
// Out-of-range values in the file are logged and replaced by defaults.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "settings"))

	settings, err := LoadSettingsFile(path, model.DefaultSettings())
	if err != nil {
		if !errors.Is(err, model.ErrInvalidSettings) {
			return nil, err
		}
		logger.Warn("ignoring invalid settings values", slog.String("path", path), slog.Any("error", err))
	}

	store := &Store{path: path, settings: settings, logger: logger}
	store.checkCustomSound(settings)
	return store, nil
}

// NewMemoryStore returns a Store that never touches the filesystem.
func NewMemoryStore(settings model.Settings, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{settings: settings, logger: logger.With(slog.String("component", "settings"))}
}

// Path returns the backing file, empty for memory stores.
func (store *Store) Path() string {
	return store.path
}

// Snapshot returns the current settings.
func (store *Store) Snapshot() model.Settings {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.settings
}

// OnChange registers fn to be called after every applied change.
func (store *Store) OnChange(fn ChangeFunc) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.listeners = append(store.listeners, fn)
}

// Update validates, persists and applies settings. Invalid settings are
// rejected with a ConfigurationError and leave the current ones in place.
func (store *Store) Update(settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if store.path != "" {
		if err := SaveSettingsFile(store.path, settings); err != nil {
			return err
		}
	}
	store.apply(settings)
	return nil
}

// Patch applies fn to a copy of the current settings and updates with the result.
func (store *Store) Patch(fn func(*model.Settings)) error {
	settings := store.Snapshot()
	fn(&settings)
	return store.Update(settings)
}

// Reset restores the defaults.
func (store *Store) Reset() error {
	return store.Update(model.DefaultSettings())
}

// Export renders the current settings as indented JSON.
func (store *Store) Export() ([]byte, error) {
	data, err := json.MarshalIndent(store.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	return data, nil
}

// Import merges JSON produced by Export, or a subset of its keys, into the
// current settings.
func (store *Store) Import(data []byte) error {
	settings := store.Snapshot()
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		return fmt.Errorf("import settings: %w: %w", ErrMalformed, err)
	}
	return store.Update(settings)
}

// Reload re-reads the backing file, keeping current values for fields that
// are missing or out of range.
func (store *Store) Reload() error {
	if store.path == "" {
		return nil
	}
	settings, err := LoadSettingsFile(store.path, store.Snapshot())
	if err != nil {
		if !errors.Is(err, model.ErrInvalidSettings) {
			return err
		}
		store.logger.Warn("ignoring invalid settings values", slog.String("path", store.path), slog.Any("error", err))
	}
	store.apply(settings)
	return nil
}

func (store *Store) apply(settings model.Settings) {
	store.mu.Lock()
	previous := store.settings
	if previous == settings {
		store.mu.Unlock()
		return
	}
	store.settings = settings
	listeners := append([]ChangeFunc(nil), store.listeners...)
	store.mu.Unlock()

	store.checkCustomSound(settings)
	store.logger.Info("settings updated",
		slog.Int("duration_minutes", settings.DurationMinutes),
		slog.Int("inactivity_threshold_seconds", settings.InactivityThresholdSeconds),
		slog.Bool("auto_start", settings.AutoStart))
	for _, fn := range listeners {
		fn(previous, settings)
	}
}

func (store *Store) checkCustomSound(settings model.Settings) {
	if settings.CustomSoundPath == "" {
		return
	}
	if _, err := os.Stat(settings.CustomSoundPath); err != nil {
		store.logger.Warn("custom sound file not found, using the built-in chime",
			slog.String("path", settings.CustomSoundPath))
	}
}
