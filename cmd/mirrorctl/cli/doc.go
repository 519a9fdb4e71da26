// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind mirrorctl:
// subcommand dispatch on pflag flag sets, structured help output with
// examples, typo suggestions for unknown commands and flags, struct-tag
// flag binding ([BindFlags]), and the embeddable --json output mode
// ([JSONOutput]).
package cli
