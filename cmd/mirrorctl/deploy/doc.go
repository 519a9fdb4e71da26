// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy implements the mirrorctl deployment commands:
// deploy, render, status, remove, and doctor. The commands share the
// settings resolution (flags over config file over defaults) and the
// systemctl runner seam; the actual planning and templating live in
// lib/deploy.
package deploy
