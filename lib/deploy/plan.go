// Copyright 2026 The Mirrorbot Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"sort"
)

// UnitPrefix is the common prefix for every mirrorbot unit name.
const UnitPrefix = "mirrorbot"

// Substitution is one placeholder replacement: every occurrence of
// {{Key}} in a template becomes Value.
type Substitution struct {
	Key   string
	Value string
}

// UnitInstall describes one template-to-unit installation: which
// template file is read, which unit file it produces, and the
// substitutions applied in between.
type UnitInstall struct {
	// Job is the logical job name ("managrams" or "sync"). Extra
	// substitutions from the configuration file are keyed by job.
	Job string

	// Template is the template file name (e.g. "managrams.service.tmpl").
	Template string

	// Unit is the produced unit file name (e.g.
	// "mirrorbot-managrams-dev.service").
	Unit string

	// Substitutions is the ordered substitution list for this install.
	// Order does not affect the result; every placeholder name is
	// distinct.
	Substitutions []Substitution
}

// Plan is the full installation plan for one environment: the four
// unit installs and the units to activate afterwards.
type Plan struct {
	Environment Environment

	// Installs lists every unit file to produce, in order.
	Installs []UnitInstall

	// ActivationTargets are the units passed to enable/restart, in
	// order. Only the timer units are activated; the service units
	// are started transitively by their timers.
	ActivationTargets []string
}

// ServiceUnit returns the service unit name for a job in an
// environment, e.g. "mirrorbot-managrams-dev.service".
func ServiceUnit(job string, environment Environment) string {
	return fmt.Sprintf("%s-%s-%s.service", UnitPrefix, job, environment)
}

// TimerUnit returns the timer unit name for a job in an environment.
func TimerUnit(job string, environment Environment) string {
	return fmt.Sprintf("%s-%s-%s.timer", UnitPrefix, job, environment)
}

// NewPlan builds the installation plan for an environment. The sync
// service references the managrams service unit by name so that its
// unit file can order itself after managram processing.
func NewPlan(environment Environment) Plan {
	managramsService := ServiceUnit("managrams", environment)
	managramsTimer := TimerUnit("managrams", environment)
	syncService := ServiceUnit("sync", environment)
	syncTimer := TimerUnit("sync", environment)

	return Plan{
		Environment: environment,
		Installs: []UnitInstall{
			{
				Job:      "managrams",
				Template: "managrams.service.tmpl",
				Unit:     managramsService,
				Substitutions: []Substitution{
					{Key: "ENVIRONMENT", Value: string(environment)},
				},
			},
			{
				Job:      "managrams",
				Template: "managrams.timer.tmpl",
				Unit:     managramsTimer,
			},
			{
				Job:      "sync",
				Template: "sync.service.tmpl",
				Unit:     syncService,
				Substitutions: []Substitution{
					{Key: "ENVIRONMENT", Value: string(environment)},
					{Key: "MANAGRAMS_SERVICE", Value: managramsService},
				},
			},
			{
				Job:      "sync",
				Template: "sync.timer.tmpl",
				Unit:     syncTimer,
			},
		},
		ActivationTargets: []string{managramsTimer, syncTimer},
	}
}

// MergeSubstitutions appends per-job substitutions from the
// configuration file to each install. The fixed substitutions come
// first. A configured key that duplicates a fixed key has no effect:
// the first replacement already removed the token.
func (p Plan) MergeSubstitutions(extra map[string]map[string]string) Plan {
	if len(extra) == 0 {
		return p
	}
	installs := make([]UnitInstall, len(p.Installs))
	copy(installs, p.Installs)
	for i := range installs {
		jobExtra := extra[installs[i].Job]
		if len(jobExtra) == 0 {
			continue
		}
		merged := make([]Substitution, len(installs[i].Substitutions), len(installs[i].Substitutions)+len(jobExtra))
		copy(merged, installs[i].Substitutions)
		for _, key := range sortedKeys(jobExtra) {
			merged = append(merged, Substitution{Key: key, Value: jobExtra[key]})
		}
		installs[i].Substitutions = merged
	}
	p.Installs = installs
	return p
}

// sortedKeys returns map keys in sorted order so that merged
// substitution lists are deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
