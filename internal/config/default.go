package config

import (
	_ "embed"
)

//go:embed default_plan.yaml
var defaultPlanData []byte

// DefaultPlan returns the built-in Arch bootstrap plan used when no plan
// file is supplied on the command line.
func DefaultPlan() (*Plan, error) {
	return parsePlanBytes("<builtin>", defaultPlanData)
}
