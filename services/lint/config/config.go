// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the fixturelint configuration: which base class
// marks a fixture, which lifecycle methods are checked, and the parser's
// size limit. Defaults reproduce the unittest conventions exactly and
// ship embedded in the binary.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed defaults.yaml
var defaultConfigYAML []byte

// =============================================================================
// Configuration Types
// =============================================================================

// Config defines what the checker looks for and the parser's limits.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// FixtureBase is the base-class identifier that marks a test fixture
	// class ("TestCase"). It doubles as the prescreen marker.
	FixtureBase string `yaml:"fixture_base" validate:"required"`

	// DelegationRoot is the builtin producing a bound ancestor proxy
	// ("super").
	DelegationRoot string `yaml:"delegation_root" validate:"required"`

	// CheckedMethods are the lifecycle method names the rule applies to.
	CheckedMethods []string `yaml:"checked_methods" validate:"min=1,dive,required"`

	// MaxFileSizeBytes bounds the file size the parser accepts.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" validate:"gt=0"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(defaultConfigYAML)
	if err != nil {
		// The embedded defaults are part of the binary; failing to parse
		// them is a build defect, not a runtime condition.
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads a YAML configuration file. Fields omitted in the file keep
// their embedded default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
