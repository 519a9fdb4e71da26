// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package version records the mirrorctl release version.
package version

// Version is the mirrorctl version string. Overridden at release time
// via -ldflags "-X github.com/mirrorbot/mirrorbot/lib/version.Version=...".
var Version = "dev"
