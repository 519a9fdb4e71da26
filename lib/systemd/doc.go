// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package systemd wraps the systemctl invocations mirrorctl makes.
//
// Running a privileged host command is the tool's only environment
// dependency, and it lives behind the [Runner] interface. Everything
// above it (planning, templating, command logic) stays host-agnostic,
// and tests can record systemctl call sequences without touching the
// machine.
package systemd
