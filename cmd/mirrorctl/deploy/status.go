// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// statusParams holds the parameters for the status command.
type statusParams struct {
	cli.JSONOutput
	commonParams
}

// unitStatus is the state of one unit in status output. Enabled and
// Active are only meaningful for timer units; service units run as
// oneshots triggered by their timers.
type unitStatus struct {
	Unit      string `json:"unit"`
	Timer     bool   `json:"timer"`
	Installed bool   `json:"installed"`
	Enabled   bool   `json:"enabled,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// StatusCommand returns the "status" command: report the installed/
// enabled/active state of an environment's units.
func StatusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show the state of the mirrorbot units for an environment",
		Description: `Report, for each of the four units of an environment, whether its file
is installed in the unit directory and (for the timers) whether the
unit is enabled and active. Only read-only systemctl queries are made;
no sudo is needed.`,
		Usage: "mirrorctl status <dev|prod> [flags]",
		Examples: []cli.Example{
			{
				Description: "Check the dev deployment",
				Command:     "mirrorctl status dev",
			},
			{
				Description: "Machine-readable state for monitoring",
				Command:     "mirrorctl status prod --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			return runStatus(params, args)
		},
	}
}

func runStatus(params statusParams, args []string) error {
	environment, err := resolveEnvironment("status", args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(params.commonParams, environment)
	if err != nil {
		return err
	}

	plan := buildPlan(environment, settings)
	client := systemd.NewClient(newRunner(settings.Sudo))

	statuses := make([]unitStatus, 0, len(plan.Installs))
	for _, install := range plan.Installs {
		status := unitStatus{
			Unit:  install.Unit,
			Timer: strings.HasSuffix(install.Unit, ".timer"),
		}
		if _, err := os.Stat(filepath.Join(settings.UnitDir, install.Unit)); err == nil {
			status.Installed = true
		}
		if status.Timer {
			status.Enabled = client.IsEnabled(install.Unit)
			status.Active = client.IsActive(install.Unit)
		}
		statuses = append(statuses, status)
	}

	if done, err := params.EmitJSON(statuses); done {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "UNIT\tINSTALLED\tENABLED\tACTIVE\n")
	for _, status := range statuses {
		enabled, active := "-", "-"
		if status.Timer {
			enabled = yesNo(status.Enabled)
			active = yesNo(status.Active)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status.Unit, yesNo(status.Installed), enabled, active)
	}
	return tw.Flush()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
