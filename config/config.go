// Package config reads the localizer configuration template and installs
// it into the working directory shared with the external trainer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// InstalledName is the file name of the live config inside the working
// directory. The external trainer and the predictor both read this copy.
const InstalledName = "config.json"

// Defaults for fields the template may omit.
const (
	DefaultModelFile  = "model.onnx"
	DefaultInputSize  = 256
	DefaultConfidence = 0.5
)

// Config is the subset of the localizer configuration this program
// consumes. The template may carry arbitrary extra trainer fields;
// those survive installation untouched because Install copies the file
// bytes instead of re-encoding.
type Config struct {
	ObjectSize int     `json:"object_size"`
	ModelFile  string  `json:"model_file"`
	InputSize  int     `json:"input_size"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the fields this program depends on.
func (c *Config) Validate() error {
	if c.ObjectSize <= 0 {
		return fmt.Errorf("config: object_size must be positive, got %d", c.ObjectSize)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("config: input_size must be positive, got %d", c.InputSize)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("config: confidence must be in [0,1], got %g", c.Confidence)
	}
	return nil
}

// Load parses a config file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		ModelFile:  DefaultModelFile,
		InputSize:  DefaultInputSize,
		Confidence: DefaultConfidence,
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Install copies the template byte-for-byte into workdir as the live
// config and returns the parsed config plus the installed path. The
// working directory is created if needed.
func Install(templatePath, workdir string) (*Config, string, error) {
	cfg, err := Load(templatePath)
	if err != nil {
		return nil, "", err
	}

	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, "", fmt.Errorf("config: create workdir %s: %w", workdir, err)
	}

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, "", fmt.Errorf("config: read %s: %w", templatePath, err)
	}
	installed := filepath.Join(workdir, InstalledName)
	if err := os.WriteFile(installed, raw, 0o644); err != nil {
		return nil, "", fmt.Errorf("config: install %s: %w", installed, err)
	}
	return cfg, installed, nil
}
