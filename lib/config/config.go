// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mirrorbot/mirrorbot/lib/deploy"
)

// EnvVariable names the environment variable consulted when no
// --config flag is given.
const EnvVariable = "MIRRORCTL_CONFIG"

// Defaults for settings not present in any configuration file.
const (
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultTemplateDir = "."
)

// Config is the mirrorctl configuration file.
type Config struct {
	// UnitDir is where rendered unit files are written.
	UnitDir string `yaml:"unit_dir"`

	// TemplateDir is where unit templates are read from.
	TemplateDir string `yaml:"template_dir"`

	// Sudo controls whether mutating systemctl commands run through
	// sudo. Pointer so that "absent" and "false" stay distinct.
	Sudo *bool `yaml:"sudo"`

	// Substitutions adds placeholder values per job, merged after the
	// fixed substitution sets. Keyed job -> placeholder -> value.
	Substitutions map[string]map[string]string `yaml:"substitutions"`

	// Development and Production override base values when the
	// deployment environment matches.
	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides are the per-environment overridable fields.
type Overrides struct {
	UnitDir       string                       `yaml:"unit_dir"`
	TemplateDir   string                       `yaml:"template_dir"`
	Sudo          *bool                        `yaml:"sudo"`
	Substitutions map[string]map[string]string `yaml:"substitutions"`
}

// Settings are the fully resolved values for one environment.
type Settings struct {
	UnitDir       string
	TemplateDir   string
	Sudo          bool
	Substitutions map[string]map[string]string
}

// Load reads and parses a configuration file. Unknown keys are an
// error: a typo in a deploy config should fail loudly, not silently
// fall back to a default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var parsed Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: all defaults.
			return &Config{}, nil
		}
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &parsed, nil
}

// Locate resolves the configuration for a command: the explicit flag
// path wins, then MIRRORCTL_CONFIG, then no file at all (nil Config,
// which resolves to pure defaults).
func Locate(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvVariable)
	}
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// Resolve produces the effective settings for an environment by
// layering defaults, base values, and the matching override section.
// A nil receiver resolves to pure defaults.
func (c *Config) Resolve(environment deploy.Environment) Settings {
	settings := Settings{
		UnitDir:     DefaultUnitDir,
		TemplateDir: DefaultTemplateDir,
		Sudo:        true,
	}
	if c == nil {
		return settings
	}

	settings.apply(Overrides{
		UnitDir:       c.UnitDir,
		TemplateDir:   c.TemplateDir,
		Sudo:          c.Sudo,
		Substitutions: c.Substitutions,
	})

	var overrides *Overrides
	if environment == deploy.Prod {
		overrides = c.Production
	} else {
		overrides = c.Development
	}
	if overrides != nil {
		settings.apply(*overrides)
	}
	return settings
}

// apply layers one set of overrides onto the settings. Substitution
// maps merge per job with later layers winning per key.
func (s *Settings) apply(overrides Overrides) {
	if overrides.UnitDir != "" {
		s.UnitDir = overrides.UnitDir
	}
	if overrides.TemplateDir != "" {
		s.TemplateDir = overrides.TemplateDir
	}
	if overrides.Sudo != nil {
		s.Sudo = *overrides.Sudo
	}
	for job, pairs := range overrides.Substitutions {
		if s.Substitutions == nil {
			s.Substitutions = make(map[string]map[string]string)
		}
		if s.Substitutions[job] == nil {
			s.Substitutions[job] = make(map[string]string)
		}
		for key, value := range pairs {
			s.Substitutions[job][key] = value
		}
	}
}
