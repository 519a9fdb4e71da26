// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package doctor is the check-and-repair model behind
// "mirrorctl doctor": typed check results, fix execution with
// dry-run and root-required handling, and checklist/JSON reporting.
package doctor
