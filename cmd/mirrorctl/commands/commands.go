// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete mirrorctl command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	deploycmd "github.com/mirrorbot/mirrorbot/cmd/mirrorctl/deploy"
	"github.com/mirrorbot/mirrorbot/lib/version"
)

// Root builds and returns the mirrorctl command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "mirrorctl",
		Description: `mirrorctl: deployment tool for the mirrorbot scheduled jobs.

Renders the managrams and sync systemd units for an environment (dev
or prod), installs them, and manages their timers.`,
		Subcommands: []*cli.Command{
			deploycmd.Command(),
			deploycmd.RenderCommand(),
			deploycmd.StatusCommand(),
			deploycmd.RemoveCommand(),
			deploycmd.DoctorCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print the mirrorctl version",
		Usage:   "mirrorctl version",
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			fmt.Fprintln(os.Stdout, version.Version)
			return nil
		},
	}
}
