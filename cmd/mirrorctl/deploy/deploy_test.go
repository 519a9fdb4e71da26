// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mirrorbot/mirrorbot/cmd/mirrorctl/cli"
	"github.com/mirrorbot/mirrorbot/lib/config"
	"github.com/mirrorbot/mirrorbot/lib/content"
	libdeploy "github.com/mirrorbot/mirrorbot/lib/deploy"
	"github.com/mirrorbot/mirrorbot/lib/systemd"
)

// fakeRunner records systemctl invocations. Calls whose joined argv
// starts with failOn return an error; Output answers from the outputs
// map and fails for anything else, which reads as disabled/inactive.
type fakeRunner struct {
	calls   []string
	failOn  string
	outputs map[string]string
}

func (r *fakeRunner) Run(name string, args ...string) error {
	call := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.HasPrefix(call, r.failOn) {
		return errors.New("exit status 1")
	}
	return nil
}

func (r *fakeRunner) Output(name string, args ...string) (string, error) {
	call := name + " " + strings.Join(args, " ")
	if output, ok := r.outputs[call]; ok {
		return output, nil
	}
	return "", errors.New("exit status 1")
}

// stubRunner routes every systemd.Client in this package at the fake
// for the duration of the test.
func stubRunner(t *testing.T, runner systemd.Runner) {
	t.Helper()
	original := newRunner
	newRunner = func(bool) systemd.Runner { return runner }
	t.Cleanup(func() { newRunner = original })
}

// isolateConfig keeps a developer's MIRRORCTL_CONFIG out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvVariable, "")
}

func embeddedParams(unitDir string) commonParams {
	return commonParams{UnitDir: unitDir, Embedded: true, NoSudo: true}
}

func expectedContent(t *testing.T, install libdeploy.UnitInstall) string {
	t.Helper()
	text, err := content.Template(install.Template)
	if err != nil {
		t.Fatalf("embedded template %s: %v", install.Template, err)
	}
	return libdeploy.Render(text, install.Substitutions)
}

func TestDeploy_InstallsAndActivates(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	runner := &fakeRunner{}
	stubRunner(t, runner)

	params := deployParams{commonParams: embeddedParams(unitDir)}
	if err := runDeploy(params, []string{"dev"}); err != nil {
		t.Fatalf("runDeploy: %v", err)
	}

	plan := libdeploy.NewPlan(libdeploy.Dev)
	for _, install := range plan.Installs {
		written, err := os.ReadFile(filepath.Join(unitDir, install.Unit))
		if err != nil {
			t.Fatalf("unit file %s not installed: %v", install.Unit, err)
		}
		if string(written) != expectedContent(t, install) {
			t.Errorf("%s: installed content differs from rendered template", install.Unit)
		}
	}

	want := []string{
		"systemctl daemon-reload",
		"systemctl enable mirrorbot-managrams-dev.timer",
		"systemctl restart mirrorbot-managrams-dev.timer",
		"systemctl enable mirrorbot-sync-dev.timer",
		"systemctl restart mirrorbot-sync-dev.timer",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("systemctl calls = %v, want %v", runner.calls, want)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, runner.calls[i], want[i])
		}
	}
}

func TestDeploy_InvalidEnvironment(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	runner := &fakeRunner{}
	stubRunner(t, runner)

	params := deployParams{commonParams: embeddedParams(unitDir)}
	if err := runDeploy(params, []string{"staging"}); err == nil {
		t.Fatal("runDeploy(staging): want error, got nil")
	}

	if len(runner.calls) != 0 {
		t.Errorf("systemctl invoked despite invalid environment: %v", runner.calls)
	}
	entries, _ := os.ReadDir(unitDir)
	if len(entries) != 0 {
		t.Errorf("unit files written despite invalid environment: %v", entries)
	}
}

func TestDeploy_MissingEnvironmentArgument(t *testing.T) {
	isolateConfig(t)
	runner := &fakeRunner{}
	stubRunner(t, runner)

	params := deployParams{commonParams: embeddedParams(t.TempDir())}
	if err := runDeploy(params, nil); err == nil {
		t.Fatal("runDeploy with no argument: want error, got nil")
	}
	if err := runDeploy(params, []string{"dev", "prod"}); err == nil {
		t.Fatal("runDeploy with two arguments: want error, got nil")
	}
	if len(runner.calls) != 0 {
		t.Errorf("systemctl invoked despite usage error: %v", runner.calls)
	}
}

func TestDeploy_ReloadFailureStopsActivation(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	runner := &fakeRunner{failOn: "systemctl daemon-reload"}
	stubRunner(t, runner)

	params := deployParams{commonParams: embeddedParams(unitDir)}
	if err := runDeploy(params, []string{"dev"}); err == nil {
		t.Fatal("runDeploy with failing daemon-reload: want error, got nil")
	}

	if len(runner.calls) != 1 || runner.calls[0] != "systemctl daemon-reload" {
		t.Errorf("calls = %v, want only the failed daemon-reload", runner.calls)
	}

	// Files written before the failure stay in place.
	entries, _ := os.ReadDir(unitDir)
	if len(entries) != 4 {
		t.Errorf("%d unit files after aborted deploy, want 4", len(entries))
	}
}

func TestDeploy_FirstEnableFailureShortCircuits(t *testing.T) {
	isolateConfig(t)
	runner := &fakeRunner{failOn: "systemctl enable mirrorbot-managrams-dev.timer"}
	stubRunner(t, runner)

	params := deployParams{commonParams: embeddedParams(t.TempDir())}
	if err := runDeploy(params, []string{"dev"}); err == nil {
		t.Fatal("runDeploy with failing enable: want error, got nil")
	}

	want := []string{
		"systemctl daemon-reload",
		"systemctl enable mirrorbot-managrams-dev.timer",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("calls = %v, want stop after first enable failure", runner.calls)
	}
}

func TestDeploy_MissingTemplateAborts(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	runner := &fakeRunner{}
	stubRunner(t, runner)

	// Template directory is empty: the first install fails before any
	// file is written or systemctl is run.
	params := deployParams{commonParams: commonParams{
		UnitDir:     unitDir,
		TemplateDir: t.TempDir(),
		NoSudo:      true,
	}}
	if err := runDeploy(params, []string{"dev"}); err == nil {
		t.Fatal("runDeploy with empty template dir: want error, got nil")
	}

	if len(runner.calls) != 0 {
		t.Errorf("systemctl invoked despite template failure: %v", runner.calls)
	}
	entries, _ := os.ReadDir(unitDir)
	if len(entries) != 0 {
		t.Errorf("unit files written despite template failure: %v", entries)
	}
}

func TestDeploy_Idempotent(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()

	first := &fakeRunner{}
	stubRunner(t, first)
	params := deployParams{commonParams: embeddedParams(unitDir)}
	if err := runDeploy(params, []string{"prod"}); err != nil {
		t.Fatalf("first deploy: %v", err)
	}

	snapshot := make(map[string]string)
	plan := libdeploy.NewPlan(libdeploy.Prod)
	for _, install := range plan.Installs {
		written, err := os.ReadFile(filepath.Join(unitDir, install.Unit))
		if err != nil {
			t.Fatal(err)
		}
		snapshot[install.Unit] = string(written)
	}

	second := &fakeRunner{}
	stubRunner(t, second)
	if err := runDeploy(params, []string{"prod"}); err != nil {
		t.Fatalf("second deploy: %v", err)
	}

	for _, install := range plan.Installs {
		written, err := os.ReadFile(filepath.Join(unitDir, install.Unit))
		if err != nil {
			t.Fatal(err)
		}
		if string(written) != snapshot[install.Unit] {
			t.Errorf("%s changed on second deploy", install.Unit)
		}
	}
	if len(first.calls) != len(second.calls) {
		t.Fatalf("call counts differ: first %v, second %v", first.calls, second.calls)
	}
	for i := range first.calls {
		if first.calls[i] != second.calls[i] {
			t.Errorf("calls[%d] differ: %q vs %q", i, first.calls[i], second.calls[i])
		}
	}
}

func TestRender_StrictFailsOnUnresolved(t *testing.T) {
	isolateConfig(t)
	templateDir := t.TempDir()
	writeTestTemplates(t, templateDir, map[string]string{
		"managrams.service.tmpl": "Environment=MB_ENVIRONMENT={{ENVIRONMENT}}\nHost={{API_HOST}}\n",
		"managrams.timer.tmpl":   "OnCalendar=*:0/15\n",
		"sync.service.tmpl":      "Environment=MB_ENVIRONMENT={{ENVIRONMENT}}\n",
		"sync.timer.tmpl":        "OnCalendar=hourly\n",
	})

	params := renderParams{
		commonParams: commonParams{TemplateDir: templateDir, NoSudo: true},
		Strict:       true,
	}
	err := runRender(params, []string{"dev"})
	if err == nil {
		t.Fatal("strict render with unresolved placeholder: want error, got nil")
	}
	if !strings.Contains(err.Error(), "API_HOST") {
		t.Errorf("error %q does not name the unresolved placeholder", err)
	}
	if !strings.Contains(err.Error(), "mirrorbot-managrams-dev.service") {
		t.Errorf("error %q does not name the offending unit", err)
	}
}

func TestRender_WritesOutputDirectory(t *testing.T) {
	isolateConfig(t)
	outputDir := filepath.Join(t.TempDir(), "out")

	params := renderParams{
		commonParams: commonParams{Embedded: true, NoSudo: true},
		Output:       outputDir,
	}
	if err := runRender(params, []string{"prod"}); err != nil {
		t.Fatalf("runRender: %v", err)
	}

	for _, install := range libdeploy.NewPlan(libdeploy.Prod).Installs {
		written, err := os.ReadFile(filepath.Join(outputDir, install.Unit))
		if err != nil {
			t.Fatalf("rendered unit %s missing: %v", install.Unit, err)
		}
		if string(written) != expectedContent(t, install) {
			t.Errorf("%s: rendered content differs from template", install.Unit)
		}
	}
}

func TestRemove_DisablesStopsAndDeletes(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	plan := libdeploy.NewPlan(libdeploy.Dev)
	for _, install := range plan.Installs {
		path := filepath.Join(unitDir, install.Unit)
		if err := os.WriteFile(path, []byte("[Unit]\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{outputs: map[string]string{
		"systemctl is-enabled mirrorbot-managrams-dev.timer": "enabled",
		"systemctl is-active mirrorbot-managrams-dev.timer":  "active",
		"systemctl is-enabled mirrorbot-sync-dev.timer":      "enabled",
		"systemctl is-active mirrorbot-sync-dev.timer":       "active",
	}}
	stubRunner(t, runner)

	params := removeParams{commonParams: embeddedParams(unitDir)}
	if err := runRemove(params, []string{"dev"}); err != nil {
		t.Fatalf("runRemove: %v", err)
	}

	want := []string{
		"systemctl disable mirrorbot-managrams-dev.timer",
		"systemctl stop mirrorbot-managrams-dev.timer",
		"systemctl disable mirrorbot-sync-dev.timer",
		"systemctl stop mirrorbot-sync-dev.timer",
		"systemctl daemon-reload",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", runner.calls, want)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, runner.calls[i], want[i])
		}
	}

	entries, _ := os.ReadDir(unitDir)
	if len(entries) != 0 {
		t.Errorf("unit files left after remove: %v", entries)
	}
}

func TestRemove_ToleratesPartialDeployment(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()

	// Only one of the four unit files exists, timers were never
	// enabled. Remove still succeeds and only reloads.
	plan := libdeploy.NewPlan(libdeploy.Prod)
	if err := os.WriteFile(filepath.Join(unitDir, plan.Installs[0].Unit), []byte("[Unit]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	stubRunner(t, runner)

	params := removeParams{commonParams: embeddedParams(unitDir)}
	if err := runRemove(params, []string{"prod"}); err != nil {
		t.Fatalf("runRemove on partial deployment: %v", err)
	}

	if len(runner.calls) != 1 || runner.calls[0] != "systemctl daemon-reload" {
		t.Errorf("calls = %v, want only daemon-reload", runner.calls)
	}
	entries, _ := os.ReadDir(unitDir)
	if len(entries) != 0 {
		t.Errorf("unit files left after remove: %v", entries)
	}
}

func writeTestTemplates(t *testing.T, directory string, templates map[string]string) {
	t.Helper()
	for name, text := range templates {
		if err := os.WriteFile(filepath.Join(directory, name), []byte(text), 0644); err != nil {
			t.Fatalf("writing template %s: %v", name, err)
		}
	}
}

func installHealthyDeployment(t *testing.T, unitDir string, environment libdeploy.Environment) libdeploy.Plan {
	t.Helper()
	plan := libdeploy.NewPlan(environment)
	for _, install := range plan.Installs {
		path := filepath.Join(unitDir, install.Unit)
		if err := libdeploy.WriteUnit(path, expectedContent(t, install)); err != nil {
			t.Fatal(err)
		}
	}
	return plan
}

func healthyTimerOutputs(plan libdeploy.Plan) map[string]string {
	outputs := make(map[string]string)
	for _, unit := range plan.ActivationTargets {
		outputs["systemctl is-enabled "+unit] = "enabled"
		outputs["systemctl is-active "+unit] = "active"
	}
	return outputs
}

func TestDoctor_HealthyDeploymentPasses(t *testing.T) {
	isolateConfig(t)
	unitDir := t.TempDir()
	plan := installHealthyDeployment(t, unitDir, libdeploy.Dev)

	runner := &fakeRunner{outputs: healthyTimerOutputs(plan)}
	stubRunner(t, runner)

	params := doctorParams{commonParams: embeddedParams(unitDir)}
	if err := runDoctor(params, []string{"dev"}); err != nil {
		t.Fatalf("runDoctor on healthy deployment: %v", err)
	}
}

func TestDoctor_MissingUnitDirFails(t *testing.T) {
	isolateConfig(t)
	runner := &fakeRunner{}
	stubRunner(t, runner)

	params := doctorParams{commonParams: embeddedParams(filepath.Join(t.TempDir(), "absent"))}
	err := runDoctor(params, []string{"dev"})
	if err == nil {
		t.Fatal("runDoctor with missing unit dir: want error, got nil")
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("err = %v, want ExitError with code 1", err)
	}
}

func TestCheckDeployment_DetectsDriftAndInactivity(t *testing.T) {
	unitDir := t.TempDir()
	plan := libdeploy.NewPlan(libdeploy.Dev)

	// First unit drifted, rest missing, timers disabled and stopped.
	if err := os.WriteFile(filepath.Join(unitDir, plan.Installs[0].Unit), []byte("[Unit]\nstale\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	client := systemd.NewClient(runner)

	results, err := checkDeployment(plan, content.Source{}, unitDir, client)
	if err != nil {
		t.Fatalf("checkDeployment: %v", err)
	}

	byName := make(map[string]string)
	fixable := make(map[string]bool)
	for i := range results {
		byName[results[i].Name] = string(results[i].Status)
		fixable[results[i].Name] = results[i].HasFix()
	}

	drifted := plan.Installs[0].Unit + " installed"
	if byName[drifted] != "fail" || !fixable[drifted] {
		t.Errorf("drifted unit: status %s fixable %v, want fixable fail", byName[drifted], fixable[drifted])
	}
	missing := plan.Installs[1].Unit + " installed"
	if byName[missing] != "fail" || !fixable[missing] {
		t.Errorf("missing unit: status %s fixable %v, want fixable fail", byName[missing], fixable[missing])
	}
	for _, unit := range plan.ActivationTargets {
		if byName[unit+" enabled"] != "fail" {
			t.Errorf("%s enabled = %s, want fail", unit, byName[unit+" enabled"])
		}
		if byName[unit+" active"] != "fail" {
			t.Errorf("%s active = %s, want fail", unit, byName[unit+" active"])
		}
	}
}

func TestCheckDeployment_WarnsOnUnresolvedPlaceholders(t *testing.T) {
	unitDir := t.TempDir()
	templateDir := t.TempDir()
	writeTestTemplates(t, templateDir, map[string]string{
		"managrams.service.tmpl": "Host={{API_HOST}}\n",
		"managrams.timer.tmpl":   "OnCalendar=*:0/15\n",
		"sync.service.tmpl":      "Environment=MB_ENVIRONMENT={{ENVIRONMENT}}\n",
		"sync.timer.tmpl":        "OnCalendar=hourly\n",
	})

	plan := libdeploy.NewPlan(libdeploy.Dev)
	source := libdeploy.DirSource{Dir: templateDir}
	for _, install := range plan.Installs {
		text, err := source.Template(install.Template)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(unitDir, install.Unit)
		if err := libdeploy.WriteUnit(path, libdeploy.Render(text, install.Substitutions)); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{outputs: healthyTimerOutputs(plan)}
	results, err := checkDeployment(plan, source, unitDir, systemd.NewClient(runner))
	if err != nil {
		t.Fatalf("checkDeployment: %v", err)
	}

	warned := false
	for _, result := range results {
		if result.Status == "warn" && strings.Contains(result.Message, "API_HOST") {
			warned = true
		}
		if result.Status == "fail" {
			t.Errorf("unexpected failure: %s: %s", result.Name, result.Message)
		}
	}
	if !warned {
		t.Error("no warning for the unresolved API_HOST placeholder")
	}
}

func TestWriteUnitFix(t *testing.T) {
	unitDir := t.TempDir()
	path := filepath.Join(unitDir, "mirrorbot-sync-dev.service")
	runner := &fakeRunner{}
	client := systemd.NewClient(runner)

	if err := writeUnitFix(client, path, "[Unit]\nfixed\n")(); err != nil {
		t.Fatalf("writeUnitFix: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != "[Unit]\nfixed\n" {
		t.Errorf("written content = %q", written)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "systemctl daemon-reload" {
		t.Errorf("calls = %v, want daemon-reload after write", runner.calls)
	}
}

func TestUpdateUnitFix_RestartsOnlyIfWasActive(t *testing.T) {
	unitDir := t.TempDir()
	path := filepath.Join(unitDir, "mirrorbot-sync-dev.timer")

	runner := &fakeRunner{}
	client := systemd.NewClient(runner)
	if err := updateUnitFix(client, path, "new", "mirrorbot-sync-dev.timer", true)(); err != nil {
		t.Fatalf("updateUnitFix: %v", err)
	}
	want := []string{"systemctl daemon-reload", "systemctl restart mirrorbot-sync-dev.timer"}
	if len(runner.calls) != len(want) || runner.calls[0] != want[0] || runner.calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", runner.calls, want)
	}

	runner = &fakeRunner{}
	client = systemd.NewClient(runner)
	if err := updateUnitFix(client, path, "newer", "mirrorbot-sync-dev.timer", false)(); err != nil {
		t.Fatalf("updateUnitFix (inactive): %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "systemctl daemon-reload" {
		t.Errorf("calls = %v, want only daemon-reload when unit was not running", runner.calls)
	}
}

func TestResolveSettings_FlagsOverrideConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "mirrorctl.yaml")
	if err := os.WriteFile(configPath, []byte("unit_dir: /from/config\nsudo: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	params := commonParams{Config: configPath, UnitDir: "/from/flag", NoSudo: true}
	settings, err := resolveSettings(params, libdeploy.Dev)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if settings.UnitDir != "/from/flag" {
		t.Errorf("UnitDir = %q, want the flag value", settings.UnitDir)
	}
	if settings.Sudo {
		t.Error("Sudo = true, want false: --no-sudo overrides the config")
	}
}
