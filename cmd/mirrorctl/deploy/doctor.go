// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli/doctor"
	libdeploy "github.com/mirrorbot/mirrorbot/lib/deploy"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// doctorParams holds the parameters for the doctor command.
type doctorParams struct {
	cli.JSONOutput
	commonParams
	Fix    bool `flag:"fix" desc:"automatically repair fixable issues"`
	DryRun bool `flag:"dry-run" desc:"preview repairs without executing (requires --fix)"`
}

// DoctorCommand returns the "doctor" command: check and repair the
// deployed state of an environment.
func DoctorCommand() *cli.Command {
	var params doctorParams

	return &cli.Command{
		Name:    "doctor",
		Summary: "Check and repair the deployed mirrorbot units for an environment",
		Description: `Validate an environment's deployment: every unit file installed with
the expected rendered content, no unresolved placeholders left in
installed files, and both timers enabled and active.

Runs a series of checks and reports pass/fail/warn for each. Exits
with code 1 if any check fails.

Use --fix to repair fixable issues. Repairs write unit files and run
systemctl, so they generally need root; doctor groups skipped
elevated fixes and suggests re-running with sudo.

Use --fix --dry-run to preview repairs without making changes, and
--json for machine-readable output.`,
		Usage: "mirrorctl doctor <dev|prod> [flags]",
		Examples: []cli.Example{
			{
				Description: "Check the production deployment",
				Command:     "mirrorctl doctor prod",
			},
			{
				Description: "Repair a drifted deployment",
				Command:     "sudo mirrorctl doctor prod --fix",
			},
			{
				Description: "Preview repairs without executing",
				Command:     "sudo mirrorctl doctor dev --fix --dry-run",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("doctor", &params)
		},
		Run: func(args []string) error {
			if params.DryRun && !params.Fix {
				return cli.Validation("--dry-run requires --fix")
			}
			return runDoctor(params, args)
		},
	}
}

func runDoctor(params doctorParams, args []string) error {
	environment, err := resolveEnvironment("doctor", args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(params.commonParams, environment)
	if err != nil {
		return err
	}

	plan := buildPlan(environment, settings)
	source := templateSource(params.commonParams, settings)
	client := systemd.NewClient(newRunner(settings.Sudo))

	results, err := checkDeployment(plan, source, settings.UnitDir, client)
	if err != nil {
		return err
	}

	var outcome doctor.Outcome
	if params.Fix {
		repairedNames := make(map[string]bool)
		for _, result := range results {
			if result.Status == doctor.StatusFail {
				repairedNames[result.Name] = true
			}
		}
		outcome = doctor.ExecuteFixes(results, params.DryRun)
		if outcome.FixedCount > 0 {
			// Re-check so the report reflects the repaired state.
			results, err = checkDeployment(plan, source, settings.UnitDir, client)
			if err != nil {
				return err
			}
			doctor.MarkRepaired(results, repairedNames)
		}
	}

	if done, err := params.EmitJSON(doctor.BuildReport(results, params.DryRun, outcome)); done {
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Status == doctor.StatusFail {
				return &cli.ExitError{Code: 1}
			}
		}
		return nil
	}

	rerunHint := fmt.Sprintf("sudo mirrorctl doctor %s --fix", environment)
	return doctor.PrintChecklist(results, params.Fix, params.DryRun, outcome, rerunHint)
}

// checkDeployment runs all deployment checks for the plan. The error
// return covers template loading only; check outcomes land in results.
func checkDeployment(plan libdeploy.Plan, source libdeploy.TemplateSource, unitDir string, client *systemd.Client) ([]doctor.Result, error) {
	var results []doctor.Result

	// Unit directory.
	if info, err := os.Stat(unitDir); err != nil {
		results = append(results, doctor.Fail("unit directory", fmt.Sprintf("%s: %v", unitDir, err)))
		for _, install := range plan.Installs {
			results = append(results, doctor.Skip(install.Unit+" installed", "skipped: unit directory missing"))
		}
		return results, nil
	} else if !info.IsDir() {
		results = append(results, doctor.Fail("unit directory", fmt.Sprintf("%s exists but is not a directory", unitDir)))
		return results, nil
	}
	results = append(results, doctor.Pass("unit directory", unitDir))

	// Unit files: installed with expected content, fully substituted.
	for _, install := range plan.Installs {
		text, err := source.Template(install.Template)
		if err != nil {
			return nil, err
		}
		expected := libdeploy.Render(text, install.Substitutions)
		path := filepath.Join(unitDir, install.Unit)

		installedContent, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			results = append(results, doctor.FailElevated(
				install.Unit+" installed",
				fmt.Sprintf("%s not found", path),
				fmt.Sprintf("write %s and reload systemd", path),
				writeUnitFix(client, path, expected),
			))
			continue
		case err != nil:
			results = append(results, doctor.Fail(install.Unit+" installed", fmt.Sprintf("cannot read %s: %v", path, err)))
			continue
		}

		if string(installedContent) != expected {
			wasActive := strings.HasSuffix(install.Unit, ".timer") && client.IsActive(install.Unit)
			results = append(results, doctor.FailElevated(
				install.Unit+" installed",
				"installed content differs from expected",
				fmt.Sprintf("update %s and restart if running", path),
				updateUnitFix(client, path, expected, install.Unit, wasActive),
			))
		} else {
			results = append(results, doctor.Pass(install.Unit+" installed", "content matches"))
		}

		if unresolved := libdeploy.Unresolved(string(installedContent)); len(unresolved) > 0 {
			results = append(results, doctor.Warn(
				install.Unit+" placeholders",
				fmt.Sprintf("unresolved: %s", strings.Join(unresolved, ", ")),
			))
		}
	}

	// Timers: enabled and active.
	for _, unit := range plan.ActivationTargets {
		if client.IsEnabled(unit) {
			results = append(results, doctor.Pass(unit+" enabled", "enabled"))
		} else {
			results = append(results, doctor.FailElevated(
				unit+" enabled",
				"not enabled",
				fmt.Sprintf("systemctl enable %s", unit),
				func() error { return client.Enable(unit) },
			))
		}
		if client.IsActive(unit) {
			results = append(results, doctor.Pass(unit+" active", "running"))
		} else {
			results = append(results, doctor.FailElevated(
				unit+" active",
				"not active",
				fmt.Sprintf("systemctl restart %s", unit),
				func() error { return client.Restart(unit) },
			))
		}
	}

	return results, nil
}

// writeUnitFix writes a missing unit file and reloads systemd.
func writeUnitFix(client *systemd.Client, path, content string) doctor.FixAction {
	return func() error {
		if err := libdeploy.WriteUnit(path, content); err != nil {
			return err
		}
		return client.DaemonReload()
	}
}

// updateUnitFix rewrites a drifted unit file, reloads systemd, and
// restarts the unit if it was running; a running timer keeps its old
// definition until restarted.
func updateUnitFix(client *systemd.Client, path, content, unit string, wasActive bool) doctor.FixAction {
	return func() error {
		if err := libdeploy.WriteUnit(path, content); err != nil {
			return err
		}
		if err := client.DaemonReload(); err != nil {
			return err
		}
		if wasActive {
			return client.Restart(unit)
		}
		return nil
	}
}
