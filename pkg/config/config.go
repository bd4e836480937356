// Package config loads supervised-process definitions from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProcessSpec describes one supervised command.
type ProcessSpec struct {
	Name          string   `yaml:"name"`
	Command       string   `yaml:"command"`
	Args          []string `yaml:"args"`
	AlwaysRestart bool     `yaml:"always_restart"`
}

// Load reads and validates a process spec from a YAML file.
func Load(path string) (*ProcessSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading process spec %s: %w", path, err)
	}

	var spec ProcessSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing process spec %s: %w", path, err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks required fields and fills defaults. The name defaults to
// the program's basename.
func (s *ProcessSpec) Validate() error {
	if s.Command == "" {
		return fmt.Errorf("process spec: command is required")
	}
	if s.Name == "" {
		s.Name = filepath.Base(s.Command)
	}
	return nil
}

// Argv returns the full program plus argument vector.
func (s *ProcessSpec) Argv() []string {
	return append([]string{s.Command}, s.Args...)
}
