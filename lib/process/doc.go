// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint error handler shared by
// mirrorctl binaries.
package process
