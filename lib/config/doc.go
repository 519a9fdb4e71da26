// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional mirrorctl configuration file.
//
// The file is located by the --config flag or the MIRRORCTL_CONFIG
// environment variable; there is no automatic discovery, and a missing
// configuration simply means defaults. The file may contain
// development and production sections that override base values when
// they match the deployment environment.
package config
