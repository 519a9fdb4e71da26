// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// removeParams holds the parameters for the remove command.
type removeParams struct {
	cli.JSONOutput
	commonParams
}

// removeReport is the JSON output for remove.
type removeReport struct {
	Environment string   `json:"environment"`
	Deactivated []string `json:"deactivated"`
	Removed     []string `json:"removed"`
}

// RemoveCommand returns the "remove" command: the inverse of deploy.
func RemoveCommand() *cli.Command {
	var params removeParams

	return &cli.Command{
		Name:    "remove",
		Summary: "Deactivate and delete the mirrorbot units for an environment",
		Description: `Disable and stop the environment's timers, delete its four unit files
from the unit directory, and reload the systemd configuration.

Units that are not enabled, not running, or not installed are
tolerated, so remove can clean up a partial deployment.`,
		Usage: "mirrorctl remove <dev|prod> [flags]",
		Examples: []cli.Example{
			{
				Description: "Tear down the dev deployment",
				Command:     "sudo mirrorctl remove dev",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
		},
		Run: func(args []string) error {
			return runRemove(params, args)
		},
	}
}

func runRemove(params removeParams, args []string) error {
	environment, err := resolveEnvironment("remove", args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(params.commonParams, environment)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "remove", "environment", environment)
	plan := buildPlan(environment, settings)
	client := systemd.NewClient(newRunner(settings.Sudo))

	var deactivated []string
	for _, unit := range plan.ActivationTargets {
		if client.IsEnabled(unit) {
			if err := client.Disable(unit); err != nil {
				return err
			}
		}
		if client.IsActive(unit) {
			if err := client.Stop(unit); err != nil {
				return err
			}
		}
		deactivated = append(deactivated, unit)
		logger.Info("deactivated unit", "unit", unit)
	}

	var removed []string
	for _, install := range plan.Installs {
		path := filepath.Join(settings.UnitDir, install.Unit)
		err := os.Remove(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("removing unit file %s: %w", path, err)
		}
		removed = append(removed, install.Unit)
		logger.Info("removed unit file", "path", path)
	}

	if err := client.DaemonReload(); err != nil {
		return err
	}

	if done, err := params.EmitJSON(removeReport{
		Environment: string(environment),
		Deactivated: deactivated,
		Removed:     removed,
	}); done {
		return err
	}

	fmt.Fprintf(os.Stdout, "Deactivated %d timers, removed %d unit files.\n", len(deactivated), len(removed))
	return nil
}
