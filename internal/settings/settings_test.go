package settings

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranshuparmar/procalert/pkg/model"
)

func TestValidate(t *testing.T) {
	valid := model.DefaultSettings()
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*model.Settings)
		errs   int
	}{
		{"zero samples", func(s *model.Settings) { s.NumberOfSamples = 0 }, 1},
		{"negative threshold", func(s *model.Settings) { s.CPUThreshold = -1 }, 1},
		{"nan threshold", func(s *model.Settings) { s.CPUThreshold = math.NaN() }, 1},
		{"zero interval", func(s *model.Settings) { s.UpdateInterval = 0 }, 1},
		{"negative cooldown", func(s *model.Settings) { s.AlertThresholdMinutes = -5 }, 1},
		{"everything wrong", func(s *model.Settings) {
			s.NumberOfSamples = 0
			s.CPUThreshold = -1
			s.UpdateInterval = -time.Second
			s.AlertThresholdMinutes = -1
		}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)

			err := Validate(s)
			var invalid *InvalidSettingsError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			var merr *multierror.Error
			require.True(t, errors.As(err, &merr))
			assert.Len(t, merr.Errors, tt.errs)
		})
	}
}

func TestValidateAllowsAnyRetainedHistory(t *testing.T) {
	// Prune runs after the decision, so the next merge grows the history
	// back to the window even when fewer samples are retained.
	for _, tt := range []struct{ samples, remaining int }{
		{3, 2},
		{6, 1},
		{40, 30},
	} {
		s := model.DefaultSettings()
		s.NumberOfSamples = tt.samples
		s.RemainingSamples = tt.remaining
		assert.NoError(t, Validate(s), "samples=%d remaining=%d", tt.samples, tt.remaining)
	}
}

func TestValidateAllowsDisabledPruningAndCooldown(t *testing.T) {
	s := model.DefaultSettings()
	s.RemainingSamples = 0
	s.AlertThresholdMinutes = 0
	assert.NoError(t, Validate(s))

	s.RemainingSamples = -1
	assert.NoError(t, Validate(s))
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), s)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: 75\nupdate_interval: 5s\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	want := model.DefaultSettings()
	want.CPUThreshold = 75
	want.UpdateInterval = 5 * time.Second
	assert.Equal(t, want, s)
}

func TestDecodeIntervalForms(t *testing.T) {
	tests := []struct {
		content string
		want    time.Duration
	}{
		{"update_interval: 3\n", 3 * time.Second},
		{"update_interval: 1.5\n", 1500 * time.Millisecond},
		{"update_interval: 3s\n", 3 * time.Second},
		{"update_interval: 250ms\n", 250 * time.Millisecond},
		{"cpu_threshold: 80\nupdate_interval: 10\nnumber_of_samples: 4\n", 10 * time.Second},
	}
	for _, tt := range tests {
		s, err := Decode([]byte(tt.content))
		require.NoError(t, err, tt.content)
		assert.Equal(t, tt.want, s.UpdateInterval, tt.content)
	}

	_, err := Decode([]byte("update_interval: 0\n"))
	assert.ErrorContains(t, err, "update_interval must be positive")

	_, err = Decode([]byte("update_interval: 3\nextra: 1\n"))
	assert.Error(t, err, "unknown keys are still rejected after rewriting")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), s)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "cpu_treshold: 75\n"},
		{"bad duration", "update_interval: soon\n"},
		{"out of range", "number_of_samples: 0\n"},
		{"not yaml", "::::\n  - ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := model.Settings{
		NumberOfSamples:       4,
		CPUThreshold:          82.5,
		UpdateInterval:        1500 * time.Millisecond,
		RemainingSamples:      12,
		AlertThresholdMinutes: 15,
	}
	require.NoError(t, Save(path, s))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")
}

func TestSaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := model.DefaultSettings()
	s.NumberOfSamples = 0

	var invalid *InvalidSettingsError
	require.ErrorAs(t, Save(path, s), &invalid)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreKeepsLastKnownGood(t *testing.T) {
	store, err := NewStore("", nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), store.Current())

	bad := model.DefaultSettings()
	bad.UpdateInterval = 0
	require.Error(t, store.Set(bad))
	assert.Equal(t, model.DefaultSettings(), store.Current())

	got, err := store.Update(func(s *model.Settings) { s.NumberOfSamples = -1 })
	require.Error(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	got, err = store.Update(func(s *model.Settings) { s.CPUThreshold = 90 })
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.CPUThreshold)
	assert.Equal(t, 90.0, store.Current().CPUThreshold)
}

func TestStoreOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: 75\n"), 0o644))

	store, err := NewStore(path, nil, func(s *model.Settings) { s.NumberOfSamples = 2 })
	require.NoError(t, err)
	assert.Equal(t, 75.0, store.Current().CPUThreshold)
	assert.Equal(t, 2, store.Current().NumberOfSamples)

	_, err = NewStore(path, nil, func(s *model.Settings) { s.NumberOfSamples = 0 })
	assert.Error(t, err)
}

func TestStoreReloadKeepsCurrentOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: 75\n"), 0o644))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: -3\n"), 0o644))
	require.Error(t, store.Reload())
	assert.Equal(t, 75.0, store.Current().CPUThreshold)

	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: 60\n"), 0o644))
	require.NoError(t, store.Reload())
	assert.Equal(t, 60.0, store.Current().CPUThreshold)
}

func TestStorePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	_, err = store.Update(func(s *model.Settings) { s.AlertThresholdMinutes = 5 })
	require.NoError(t, err)
	require.NoError(t, store.Persist())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AlertThresholdMinutes)
}

func TestStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cpu_threshold: 75\n"), 0o644))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	require.Eventually(t, func() bool {
		// Rewrite until the watcher is registered and picks it up.
		_ = os.WriteFile(path, []byte("cpu_threshold: 95\n"), 0o644)
		return store.Current().CPUThreshold == 95
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStoreWatchWithoutPath(t *testing.T) {
	store, err := NewStore("", nil)
	require.NoError(t, err)
	assert.Error(t, store.Watch(context.Background()))
}
