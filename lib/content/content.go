// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"embed"
	"fmt"
)

//go:embed systemd/*.tmpl
var templateFiles embed.FS

// Template returns the canonical content of a unit template by file
// name (e.g. "managrams.service.tmpl"). Doctor renders these as its
// expected-content baseline, and render/deploy use them when invoked
// with --embedded instead of a template directory.
func Template(name string) (string, error) {
	data, err := templateFiles.ReadFile("systemd/" + name)
	if err != nil {
		return "", fmt.Errorf("no embedded template %q: %w", name, err)
	}
	return string(data), nil
}

// TemplateNames lists the embedded template file names.
func TemplateNames() []string {
	entries, err := templateFiles.ReadDir("systemd")
	if err != nil {
		// Embedded at compile time; a read failure here is a build bug.
		panic("embedded systemd templates missing: " + err.Error())
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// Source adapts the embedded templates to the template-source shape
// used by lib/deploy, without importing it (content stays leaf-level).
type Source struct{}

// Template implements the template source over the embedded files.
func (Source) Template(name string) (string, error) {
	return Template(name)
}
