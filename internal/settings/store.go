package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// Override adjusts settings after they are read from the file, e.g. with
// command line flags.
type Override func(*model.Settings)

// Store holds the last known good settings. Readers take a copy with Current
// at the start of a tick; writers go through Set, which never lets an invalid
// value replace the current one.
type Store struct {
	mu        sync.RWMutex
	current   model.Settings
	path      string
	overrides []Override
	log       *zap.Logger
}

// NewStore loads path (defaults if it does not exist), applies overrides and
// validates the result. An empty path skips the file entirely.
func NewStore(path string, log *zap.Logger, overrides ...Override) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		path:      path,
		overrides: overrides,
		log:       log,
	}

	initial, err := s.read()
	if err != nil {
		return nil, err
	}
	s.current = initial
	return s, nil
}

// Current returns a copy of the active settings.
func (s *Store) Current() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Set replaces the active settings if next is valid.
func (s *Store) Set(next model.Settings) error {
	if err := Validate(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// Update applies edit to a copy of the active settings and keeps the result
// if it is valid. It returns the settings in effect afterwards.
func (s *Store) Update(edit func(*model.Settings)) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	edit(&next)
	if err := Validate(next); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

// Persist writes the active settings to the backing file.
func (s *Store) Persist() error {
	if s.path == "" {
		return nil
	}
	return Save(s.path, s.Current())
}

// Reload re-reads the backing file. On error the active settings are kept.
func (s *Store) Reload() error {
	next, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

func (s *Store) read() (model.Settings, error) {
	loaded := model.DefaultSettings()
	if s.path != "" {
		var err error
		loaded, err = Load(s.path)
		if err != nil {
			return loaded, err
		}
	}
	for _, o := range s.overrides {
		o(&loaded)
	}
	if err := Validate(loaded); err != nil {
		return loaded, err
	}
	return loaded, nil
}

// Watch reloads the settings whenever the backing file changes, until ctx is
// done. The parent directory is watched because editors replace files by
// renaming.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("settings store has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.log.Warn("Ignoring settings change", zap.String("path", s.path), zap.Error(err))
				continue
			}
			current := s.Current()
			s.log.Info("Settings reloaded",
				zap.Int("number_of_samples", current.NumberOfSamples),
				zap.Float64("cpu_threshold", current.CPUThreshold),
				zap.Duration("update_interval", current.UpdateInterval),
				zap.Int("remaining_samples", current.RemainingSamples),
				zap.Int("alert_threshold_minutes", current.AlertThresholdMinutes))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Settings watcher error", zap.Error(err))
		}
	}
}
