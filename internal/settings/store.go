package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"sleeperbot/internal/common"
)

// Store owns the settings file and the in-memory copy every handler and
// job reads from. Writes to the file are atomic; a read of the file racing
// with a write by another process is not guarded against.
type Store struct {
	mu        sync.RWMutex
	filename  string
	current   Settings
	listeners []func(Settings)
}

// Open the store, loading the file. A missing or malformed file yields
// the defaults
func NewStore(filename string) *Store {
	store := &Store{filename: filename}
	store.current = store.Load()
	return store
}

// Read the file from disk. Never fails: problems are logged and the
// defaults are returned
func (store *Store) Load() Settings {
	data, err := os.ReadFile(store.filename)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Msg(fmt.Sprintf("No settings file at %s, using defaults", store.filename))
		return Default()
	}
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not read settings file %s, using defaults", store.filename))
		return Default()
	}

	// Fields missing from the file keep their defaults
	settings := Default()
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Settings file %s is malformed, using defaults", store.filename))
		return Default()
	}
	return settings.Clamped()
}

// Write the settings to disk atomically and make them the current ones
func (store *Store) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}
	if err := common.WriteFileAtomic(store.filename, data, 0o644); err != nil {
		return err
	}

	store.mu.Lock()
	store.current = settings
	listeners := append([]func(Settings){}, store.listeners...)
	store.mu.Unlock()

	for _, listener := range listeners {
		listener(settings)
	}
	return nil
}

// Snapshot of the current settings
func (store *Store) Get() Settings {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.current
}

// Apply a partial update and persist it. Nothing is written when the
// update carries no field
func (store *Store) Update(update Update) (Settings, []string, error) {
	updated, changed := store.Get().Apply(update)
	if len(changed) == 0 {
		return updated, changed, nil
	}
	if err := store.Save(updated); err != nil {
		return store.Get(), nil, err
	}
	log.Info().Msg(fmt.Sprintf("Settings updated: %v", changed))
	return updated, changed, nil
}

// Register a function called after every successful save
func (store *Store) OnChange(listener func(Settings)) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.listeners = append(store.listeners, listener)
}
