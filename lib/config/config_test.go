// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mirrorbot/mirrorbot/lib/deploy"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirrorctl.yaml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
unit_dir: /tmp/units
template_dir: /tmp/templates
sudo: false
substitutions:
  sync:
    API_HOST: api.example.com
`)

	parsed, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if parsed.UnitDir != "/tmp/units" {
		t.Errorf("UnitDir = %q, want /tmp/units", parsed.UnitDir)
	}
	if parsed.TemplateDir != "/tmp/templates" {
		t.Errorf("TemplateDir = %q, want /tmp/templates", parsed.TemplateDir)
	}
	if parsed.Sudo == nil || *parsed.Sudo {
		t.Errorf("Sudo = %v, want false", parsed.Sudo)
	}
	if parsed.Substitutions["sync"]["API_HOST"] != "api.example.com" {
		t.Errorf("Substitutions = %v, want sync.API_HOST set", parsed.Substitutions)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "unit_dirr: /oops\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load with unknown key: want error, got nil")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	parsed, err := Load(path)
	if err != nil {
		t.Fatalf("Load of empty file: %v", err)
	}
	if parsed == nil {
		t.Fatal("Load of empty file returned nil config")
	}
	settings := parsed.Resolve(deploy.Dev)
	if settings.UnitDir != DefaultUnitDir {
		t.Errorf("UnitDir = %q, want default %q", settings.UnitDir, DefaultUnitDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file: want error, got nil")
	}
}

func TestLocate(t *testing.T) {
	flagged := writeConfig(t, "unit_dir: /from/flag\n")
	envPath := writeConfig(t, "unit_dir: /from/env\n")

	t.Setenv(EnvVariable, envPath)

	parsed, err := Locate(flagged)
	if err != nil {
		t.Fatalf("Locate with flag: %v", err)
	}
	if parsed.UnitDir != "/from/flag" {
		t.Errorf("flag path should win over %s, got UnitDir %q", EnvVariable, parsed.UnitDir)
	}

	parsed, err = Locate("")
	if err != nil {
		t.Fatalf("Locate from env: %v", err)
	}
	if parsed.UnitDir != "/from/env" {
		t.Errorf("UnitDir = %q, want /from/env", parsed.UnitDir)
	}

	t.Setenv(EnvVariable, "")
	parsed, err = Locate("")
	if err != nil {
		t.Fatalf("Locate with nothing set: %v", err)
	}
	if parsed != nil {
		t.Errorf("Locate with nothing set = %+v, want nil", parsed)
	}
}

func TestResolve_NilConfig(t *testing.T) {
	var parsed *Config
	settings := parsed.Resolve(deploy.Prod)
	if settings.UnitDir != DefaultUnitDir {
		t.Errorf("UnitDir = %q, want %q", settings.UnitDir, DefaultUnitDir)
	}
	if settings.TemplateDir != DefaultTemplateDir {
		t.Errorf("TemplateDir = %q, want %q", settings.TemplateDir, DefaultTemplateDir)
	}
	if !settings.Sudo {
		t.Error("Sudo = false, want true by default")
	}
}

func TestResolve_EnvironmentOverrides(t *testing.T) {
	falseValue := false
	parsed := &Config{
		UnitDir: "/base/units",
		Substitutions: map[string]map[string]string{
			"sync": {"API_HOST": "api.example.com", "SCHEDULE": "hourly"},
		},
		Development: &Overrides{
			UnitDir: "/dev/units",
			Sudo:    &falseValue,
			Substitutions: map[string]map[string]string{
				"sync": {"API_HOST": "api.dev.example.com"},
			},
		},
	}

	dev := parsed.Resolve(deploy.Dev)
	if dev.UnitDir != "/dev/units" {
		t.Errorf("dev UnitDir = %q, want /dev/units", dev.UnitDir)
	}
	if dev.Sudo {
		t.Error("dev Sudo = true, want false from override")
	}
	if dev.Substitutions["sync"]["API_HOST"] != "api.dev.example.com" {
		t.Errorf("dev API_HOST = %q, want the override value", dev.Substitutions["sync"]["API_HOST"])
	}
	if dev.Substitutions["sync"]["SCHEDULE"] != "hourly" {
		t.Errorf("dev SCHEDULE = %q, want base value preserved", dev.Substitutions["sync"]["SCHEDULE"])
	}

	prod := parsed.Resolve(deploy.Prod)
	if prod.UnitDir != "/base/units" {
		t.Errorf("prod UnitDir = %q, want base /base/units", prod.UnitDir)
	}
	if !prod.Sudo {
		t.Error("prod Sudo = false, want default true")
	}
	if prod.Substitutions["sync"]["API_HOST"] != "api.example.com" {
		t.Errorf("prod API_HOST = %q, want base value", prod.Substitutions["sync"]["API_HOST"])
	}
}
