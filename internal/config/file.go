package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig is the optional YAML document. Absent keys keep the env value.
type fileConfig struct {
	Schedule *struct {
		At        *string `yaml:"at"`
		Timezone  *string `yaml:"timezone"`
		Autostart *bool   `yaml:"autostart"`
	} `yaml:"schedule"`
	Booking *struct {
		Centers   []int64  `yaml:"centers"`
		Timings   []string `yaml:"timings"`
		WorkoutID *int64   `yaml:"workout_id"`
		Enabled   *bool    `yaml:"enabled"`
	} `yaml:"booking"`
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fc, err := decodeFile(data)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return c.apply(fc)
}

func decodeFile(data []byte) (fileConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("yaml: %w", err)
	}
	return fc, nil
}

func (c *Config) apply(fc fileConfig) error {
	if s := fc.Schedule; s != nil {
		if s.At != nil {
			c.Schedule.At = *s.At
		}
		if s.Timezone != nil {
			c.Schedule.Timezone = *s.Timezone
		}
		if s.Autostart != nil {
			c.Schedule.Autostart = *s.Autostart
		}
	}
	if b := fc.Booking; b != nil {
		if b.Centers != nil {
			c.Preferences.Centers = b.Centers
		}
		if b.Timings != nil {
			timings, err := ParseTimings(strings.Join(b.Timings, ","))
			if err != nil {
				return fmt.Errorf("booking.timings: %w", err)
			}
			c.Preferences.Timings = timings
		}
		if b.WorkoutID != nil {
			c.Preferences.WorkoutID = *b.WorkoutID
		}
		if b.Enabled != nil {
			c.Preferences.Enabled = *b.Enabled
		}
	}
	return nil
}
