// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package deploy holds the host-agnostic core of mirrorctl: the
// deployment environment, the unit installation plan, and the
// placeholder templating used to produce systemd unit files.
//
// Templating is literal substring substitution: every occurrence of
// {{KEY}} is replaced by the supplied value. Placeholders without a
// matching substitution pass through verbatim and are not an error;
// [Unresolved] exists for callers that want to report them anyway
// (render --strict, doctor).
//
// Nothing in this package touches systemd. The plan lists which
// template produces which unit file with which substitutions; running
// the plan against a directory and a service manager is the caller's
// job (see cmd/mirrorctl/deploy and lib/systemd).
package deploy
