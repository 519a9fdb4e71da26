// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger for command
// operations. On a terminal it uses slog.TextHandler; when stderr is
// piped or redirected (CI, scripts) it switches to slog.JSONHandler so
// the output stays machine-parseable.
//
// Callers scope the logger with command context via With():
//
//	logger := cli.NewCommandLogger().With("command", "deploy", "environment", env)
func NewCommandLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
