// Package settings loads, validates, persists and hot-reloads the monitor
// tunables.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// InvalidSettingsError lists every out-of-range value of a settings candidate.
type InvalidSettingsError struct {
	Err error
}

func (e *InvalidSettingsError) Error() string {
	return "invalid settings: " + e.Err.Error()
}

func (e *InvalidSettingsError) Unwrap() error {
	return e.Err
}

// Validate checks s against the domain of each field.
func Validate(s model.Settings) error {
	var errs *multierror.Error
	if s.NumberOfSamples < 1 {
		errs = multierror.Append(errs, fmt.Errorf("number_of_samples must be at least 1, got %d", s.NumberOfSamples))
	}
	if s.CPUThreshold < 0 || math.IsNaN(s.CPUThreshold) || math.IsInf(s.CPUThreshold, 0) {
		errs = multierror.Append(errs, fmt.Errorf("cpu_threshold must be a non-negative number, got %v", s.CPUThreshold))
	}
	if s.UpdateInterval <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("update_interval must be positive, got %v", s.UpdateInterval))
	}
	if s.AlertThresholdMinutes < 0 {
		errs = multierror.Append(errs, fmt.Errorf("alert_threshold_minutes must not be negative, got %d", s.AlertThresholdMinutes))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return &InvalidSettingsError{Err: err}
	}
	return nil
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "procalert", "settings.yaml"), nil
}

// Load reads the settings file at path. Keys missing from the file keep their
// default value and a missing file yields the defaults.
func Load(path string) (model.Settings, error) {
	s := model.DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	s, err = Decode(data)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode parses YAML settings on top of the defaults and validates them.
// update_interval takes a Go duration ("3s", "500ms") or a plain number of
// seconds.
func Decode(data []byte) (model.Settings, error) {
	s := model.DefaultSettings()

	data, err := normalizeInterval(data)
	if err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("parse settings: %w", err)
	}

	if err := Validate(s); err != nil {
		return s, err
	}
	return s, nil
}

// normalizeInterval rewrites a numeric update_interval as seconds so the
// duration decoder accepts it. Other documents are returned unchanged.
func normalizeInterval(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return data, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return data, nil
	}

	changed := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value != "update_interval" || val.Kind != yaml.ScalarNode {
			continue
		}
		if val.ShortTag() != "!!int" && val.ShortTag() != "!!float" {
			continue
		}
		val.Value += "s"
		val.Tag = "!!str"
		val.Style = 0
		changed = true
	}
	if !changed {
		return data, nil
	}
	return yaml.Marshal(&doc)
}

// Encode renders s as YAML.
func Encode(s model.Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

// Save validates s and writes it to path, creating parent directories.
func Save(path string, s model.Settings) error {
	if err := Validate(s); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	// Write through a temp file so a watcher never reads a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
