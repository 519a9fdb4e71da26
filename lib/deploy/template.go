// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Render applies substitutions to template text. Each {{KEY}} token is
// replaced everywhere it occurs; tokens without a matching substitution
// are left verbatim.
func Render(text string, substitutions []Substitution) string {
	for _, substitution := range substitutions {
		text = strings.ReplaceAll(text, "{{"+substitution.Key+"}}", substitution.Value)
	}
	return text
}

// placeholderPattern matches {{NAME}} tokens. Placeholder names are
// uppercase identifiers (ENVIRONMENT, MANAGRAMS_SERVICE, ...).
var placeholderPattern = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// Unresolved returns the placeholder names still present in rendered
// text, in order of first occurrence without duplicates. An empty
// result means every placeholder was substituted.
func Unresolved(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// InstallFile reads the template at templatePath, renders it, and
// writes the result to outputPath, truncating any existing file. There
// is no atomic-write step: unit files are small and systemd only
// re-reads them on daemon-reload, which happens after all writes.
func InstallFile(templatePath, outputPath string, substitutions []Substitution) error {
	text, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("reading template %s: %w", templatePath, err)
	}
	return WriteUnit(outputPath, Render(string(text), substitutions))
}

// WriteUnit writes rendered unit text to path with the standard unit
// file mode.
func WriteUnit(path string, text string) error {
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing unit file %s: %w", path, err)
	}
	return nil
}

// TemplateSource supplies template text by file name. The directory
// source reads from disk; lib/content provides the embedded canonical
// source.
type TemplateSource interface {
	Template(name string) (string, error)
}

// DirSource reads templates from a directory on disk.
type DirSource struct {
	Dir string
}

// Template reads the named template file from the directory.
func (s DirSource) Template(name string) (string, error) {
	text, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(text), nil
}
