// Package config loads YAML configuration files with environment variable
// expansion and optional validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load decodes filename into target over its current values. ${VAR}
// references are expanded first and unknown keys are rejected.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Decode(bytes.NewReader(data), target); err != nil {
		return fmt.Errorf("config file %s: %w", filename, err)
	}
	return nil
}

// Decode reads YAML from r into target, then validates it.
func Decode[T any](r io.Reader, target *T) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse: %w", err)
	}
	return validate(target)
}

// LoadWithDefaults loads filename, falling back to defaultFile when it does
// not exist. With neither file present target keeps its defaults, which are
// still validated.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	for _, name := range []string{filename, defaultFile} {
		if name == "" {
			continue
		}
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			continue
		}
		return Load(name, target)
	}
	return validate(target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
