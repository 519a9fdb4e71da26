// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	libdeploy "github.com/mirrorbot/mirrorbot/lib/deploy"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// deployParams holds the parameters for the deploy command.
type deployParams struct {
	cli.JSONOutput
	commonParams
}

// deployReport is the JSON output for deploy.
type deployReport struct {
	Environment string   `json:"environment"`
	UnitDir     string   `json:"unit_dir"`
	Installed   []string `json:"installed"`
	Activated   []string `json:"activated"`
}

// Command returns the "deploy" command: install the four unit files
// for an environment, then reload systemd and activate the timers.
func Command() *cli.Command {
	var params deployParams

	return &cli.Command{
		Name:    "deploy",
		Summary: "Install and activate the mirrorbot units for an environment",
		Description: `Render the managrams and sync unit templates for an environment and
install them under the systemd unit directory, then reload the systemd
configuration and enable and restart the two timers. The service units
are not activated directly; their timers start them on schedule.

Placeholders ({{ENVIRONMENT}}, {{MANAGRAMS_SERVICE}}) are replaced by
literal substitution. A placeholder without a value passes through
verbatim and is not an error; use "mirrorctl doctor" to surface any.

The first failing step aborts the deployment. Files already written
and units already activated stay as they are; re-running deploy is
idempotent and completes the remainder.`,
		Usage: "mirrorctl deploy <dev|prod> [flags]",
		Examples: []cli.Example{
			{
				Description: "Deploy the production units",
				Command:     "sudo mirrorctl deploy prod",
			},
			{
				Description: "Deploy to a test directory without touching systemd via sudo",
				Command:     "mirrorctl deploy dev --unit-dir /tmp/units --no-sudo",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("deploy", &params)
		},
		Run: func(args []string) error {
			return runDeploy(params, args)
		},
	}
}

func runDeploy(params deployParams, args []string) error {
	environment, err := resolveEnvironment("deploy", args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(params.commonParams, environment)
	if err != nil {
		return err
	}

	logger := cli.NewCommandLogger().With("command", "deploy", "environment", environment)
	plan := buildPlan(environment, settings)
	source := templateSource(params.commonParams, settings)

	installed, err := installUnits(plan, source, settings.UnitDir, logger)
	if err != nil {
		return err
	}

	client := systemd.NewClient(newRunner(settings.Sudo))
	if err := activateUnits(client, plan.ActivationTargets, logger); err != nil {
		return err
	}

	if done, err := params.EmitJSON(deployReport{
		Environment: string(environment),
		UnitDir:     settings.UnitDir,
		Installed:   installed,
		Activated:   plan.ActivationTargets,
	}); done {
		return err
	}

	fmt.Fprintf(os.Stdout, "Deployed %d units to %s, activated %d timers.\n",
		len(installed), settings.UnitDir, len(plan.ActivationTargets))
	return nil
}

// installUnits renders and writes every unit file in the plan,
// returning the installed unit names. The first failure aborts with
// no cleanup of files already written.
func installUnits(plan libdeploy.Plan, source libdeploy.TemplateSource, unitDir string, logger *slog.Logger) ([]string, error) {
	installed := make([]string, 0, len(plan.Installs))
	for _, install := range plan.Installs {
		text, err := source.Template(install.Template)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(unitDir, install.Unit)
		if err := libdeploy.WriteUnit(path, libdeploy.Render(text, install.Substitutions)); err != nil {
			return nil, err
		}
		logger.Info("installed unit file", "unit", install.Unit, "path", path)
		installed = append(installed, install.Unit)
	}
	return installed, nil
}

// activateUnits reloads the systemd configuration once, then enables
// and restarts each unit in order. The first non-zero systemctl exit
// aborts; units later in the list are never touched, and nothing is
// rolled back.
func activateUnits(client *systemd.Client, units []string, logger *slog.Logger) error {
	if err := client.DaemonReload(); err != nil {
		return err
	}
	for _, unit := range units {
		if err := client.Enable(unit); err != nil {
			return err
		}
		if err := client.Restart(unit); err != nil {
			return err
		}
		logger.Info("activated unit", "unit", unit)
	}
	return nil
}
