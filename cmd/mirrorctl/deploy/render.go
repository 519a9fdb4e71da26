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
	libdeploy "github.com/mirrorbot/mirrorbot/lib/deploy"
)

// renderParams holds the parameters for the render command.
type renderParams struct {
	cli.JSONOutput
	commonParams
	Output string `flag:"output,o" desc:"write rendered units into this directory instead of stdout"`
	Strict bool   `flag:"strict" desc:"fail when a rendered unit still contains placeholders"`
}

// renderedUnit is one rendered unit in JSON output.
type renderedUnit struct {
	Unit       string   `json:"unit"`
	Content    string   `json:"content"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// RenderCommand returns the "render" command: produce the unit files
// for an environment without installing or activating anything.
func RenderCommand() *cli.Command {
	var params renderParams

	return &cli.Command{
		Name:    "render",
		Summary: "Render the unit files for an environment without installing them",
		Description: `Render the four mirrorbot unit files for an environment and print them
to stdout, or write them into a directory with --output. Systemd is
never touched.

By default unresolved placeholders pass through verbatim, matching
deploy. With --strict, rendering fails if any {{NAME}} token survives
substitution.`,
		Usage: "mirrorctl render <dev|prod> [flags]",
		Examples: []cli.Example{
			{
				Description: "Preview the production units",
				Command:     "mirrorctl render prod",
			},
			{
				Description: "Write dev units into a scratch directory, failing on leftover placeholders",
				Command:     "mirrorctl render dev --output ./out --strict",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("render", &params)
		},
		Run: func(args []string) error {
			return runRender(params, args)
		},
	}
}

func runRender(params renderParams, args []string) error {
	environment, err := resolveEnvironment("render", args)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(params.commonParams, environment)
	if err != nil {
		return err
	}

	plan := buildPlan(environment, settings)
	source := templateSource(params.commonParams, settings)

	rendered := make([]renderedUnit, 0, len(plan.Installs))
	var strictFailures []string
	for _, install := range plan.Installs {
		text, err := source.Template(install.Template)
		if err != nil {
			return err
		}
		content := libdeploy.Render(text, install.Substitutions)
		unresolved := libdeploy.Unresolved(content)
		if params.Strict && len(unresolved) > 0 {
			strictFailures = append(strictFailures,
				fmt.Sprintf("%s: %s", install.Unit, strings.Join(unresolved, ", ")))
		}
		rendered = append(rendered, renderedUnit{Unit: install.Unit, Content: content, Unresolved: unresolved})
	}

	if len(strictFailures) > 0 {
		return fmt.Errorf("unresolved placeholders:\n  %s", strings.Join(strictFailures, "\n  "))
	}

	if params.Output != "" {
		if err := os.MkdirAll(params.Output, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		for _, unit := range rendered {
			if err := libdeploy.WriteUnit(filepath.Join(params.Output, unit.Unit), unit.Content); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stdout, "Wrote %d units to %s.\n", len(rendered), params.Output)
		return nil
	}

	if done, err := params.EmitJSON(rendered); done {
		return err
	}

	for _, unit := range rendered {
		fmt.Fprintf(os.Stdout, "# %s\n%s\n", unit.Unit, unit.Content)
	}
	return nil
}
