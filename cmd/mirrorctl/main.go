// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/commands"
	"github.com/mirrorbot/mirrorbot/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own report (doctor, status) return
		// an ExitError with the desired code; no extra "error:" line
		// for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
