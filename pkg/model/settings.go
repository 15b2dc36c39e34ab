package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Settings are the tunables of one tick. They are captured once at the start
// of a tick and never change while it runs.
type Settings struct {
	NumberOfSamples       int           `yaml:"number_of_samples" json:"number_of_samples"`
	CPUThreshold          float64       `yaml:"cpu_threshold" json:"cpu_threshold"`
	UpdateInterval        time.Duration `yaml:"update_interval" json:"update_interval"`
	RemainingSamples      int           `yaml:"remaining_samples" json:"remaining_samples"`
	AlertThresholdMinutes int           `yaml:"alert_threshold_minutes" json:"alert_threshold_minutes"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		NumberOfSamples:       6,
		CPUThreshold:          50.0,
		UpdateInterval:        3 * time.Second,
		RemainingSamples:      30,
		AlertThresholdMinutes: 30,
	}
}

// Window is the wall-clock span covered by NumberOfSamples samples.
func (s Settings) Window() time.Duration {
	return s.UpdateInterval * time.Duration(s.NumberOfSamples)
}

// Cooldown is the minimum time between two alerts for the same process.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.AlertThresholdMinutes) * time.Minute
}

type settingsJSON struct {
	NumberOfSamples       int             `json:"number_of_samples"`
	CPUThreshold          float64         `json:"cpu_threshold"`
	UpdateInterval        json.RawMessage `json:"update_interval"`
	RemainingSamples      int             `json:"remaining_samples"`
	AlertThresholdMinutes int             `json:"alert_threshold_minutes"`
}

// MarshalJSON writes update_interval as a duration string, as in the YAML file.
func (s Settings) MarshalJSON() ([]byte, error) {
	interval, err := json.Marshal(s.UpdateInterval.String())
	if err != nil {
		return nil, err
	}
	return json.Marshal(settingsJSON{
		NumberOfSamples:       s.NumberOfSamples,
		CPUThreshold:          s.CPUThreshold,
		UpdateInterval:        interval,
		RemainingSamples:      s.RemainingSamples,
		AlertThresholdMinutes: s.AlertThresholdMinutes,
	})
}

// UnmarshalJSON reads update_interval as a duration string or a number of
// seconds. Missing keys keep the value already in s.
func (s *Settings) UnmarshalJSON(data []byte) error {
	in := settingsJSON{
		NumberOfSamples:       s.NumberOfSamples,
		CPUThreshold:          s.CPUThreshold,
		RemainingSamples:      s.RemainingSamples,
		AlertThresholdMinutes: s.AlertThresholdMinutes,
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.UpdateInterval) > 0 && string(in.UpdateInterval) != "null" {
		d, err := parseInterval(in.UpdateInterval)
		if err != nil {
			return err
		}
		s.UpdateInterval = d
	}
	s.NumberOfSamples = in.NumberOfSamples
	s.CPUThreshold = in.CPUThreshold
	s.RemainingSamples = in.RemainingSamples
	s.AlertThresholdMinutes = in.AlertThresholdMinutes
	return nil
}

func parseInterval(raw json.RawMessage) (time.Duration, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, fmt.Errorf("update_interval: %w", err)
		}
		return d, nil
	}
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err != nil {
		return 0, fmt.Errorf("update_interval: want a duration or seconds, got %s", raw)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
