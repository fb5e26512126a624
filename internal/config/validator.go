package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	provderrors "github.com/provd/provd/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	unitIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	// Package names follow pacman's accepted charset. Anything else (spaces,
	// stray backslashes from hand-edited lists) is rejected at load time
	// instead of being pasted into a command line.
	pkgNamePattern = regexp.MustCompile(`^[a-zA-Z0-9@._+][a-zA-Z0-9@._+-]*$`)

	unitTypes = map[string]struct{}{
		"package": {}, "aur_helper": {}, "aur_package": {}, "flatpak": {},
		"line_in_file": {}, "file": {}, "mount": {}, "service": {},
		"repo": {}, "command": {},
	}
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("unit_id", func(fl validator.FieldLevel) bool {
			return unitIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("pkg_name", func(fl validator.FieldLevel) bool {
			return pkgNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("abs_path", func(fl validator.FieldLevel) bool {
			return filepath.IsAbs(fl.Field().String())
		})

		_ = v.RegisterValidation("file_mode", func(fl validator.FieldLevel) bool {
			_, err := strconv.ParseUint(fl.Field().String(), 8, 32)
			return err == nil
		})

		validateInst = v
	})

	return validateInst
}

// ValidatePlan performs schema and cross-field validation on the plan.
func ValidatePlan(plan *Plan) error {
	if plan == nil {
		return provderrors.NewValidationError("plan", "plan is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(plan); err != nil {
		return convertValidationError(err)
	}

	unitIndex := make(map[string]int, len(plan.Units))

	for i, unit := range plan.Units {
		if _, known := unitTypes[unit.Type]; !known {
			return provderrors.NewValidationError(fieldForUnit(i, "type"), fmt.Sprintf("unknown unit type %q", unit.Type), nil)
		}

		if _, exists := unitIndex[unit.ID]; exists {
			return provderrors.NewValidationError(fieldForUnit(i, "id"), fmt.Sprintf("duplicate unit id %q", unit.ID), nil)
		}
		unitIndex[unit.ID] = i

		if err := ValidateUnit(i, unit); err != nil {
			return err
		}
	}

	// Declared order is the execution order. Requires only asserts that
	// order: a unit must come after everything it requires.
	for i, unit := range plan.Units {
		for _, req := range unit.Requires {
			index, ok := unitIndex[req]
			if !ok {
				return provderrors.NewValidationError(fieldForUnit(i, "requires"), fmt.Sprintf("unit %q requires unknown unit %q", unit.ID, req), nil)
			}
			if index >= i {
				return provderrors.NewValidationError(fieldForUnit(i, "requires"), fmt.Sprintf("unit %q must be declared after required unit %q", unit.ID, req), nil)
			}
		}
	}

	return nil
}

// ValidateUnit checks the type-specific configuration of a single unit.
func ValidateUnit(index int, unit Unit) error {
	switch unit.Type {
	case "package":
		if unit.Package == nil {
			return missingConfig(index, unit)
		}
		if !unit.Package.Update && len(unit.Package.Packages) == 0 {
			return provderrors.NewValidationError(fieldForUnit(index, "packages"), "package unit needs packages or update: true", nil)
		}
	case "aur_helper":
		if unit.AURHelper == nil {
			return missingConfig(index, unit)
		}
	case "aur_package":
		if unit.AURPackage == nil {
			return missingConfig(index, unit)
		}
	case "flatpak":
		if unit.Flatpak == nil {
			return missingConfig(index, unit)
		}
		if unit.Flatpak.Remote != "" && unit.Flatpak.RemoteURL == "" {
			return provderrors.NewValidationError(fieldForUnit(index, "remote_url"), "remote requires remote_url", nil)
		}
	case "line_in_file":
		if unit.LineInFile == nil {
			return missingConfig(index, unit)
		}
		if unit.LineInFile.Pattern != "" {
			if _, err := regexp.Compile(unit.LineInFile.Pattern); err != nil {
				return provderrors.NewValidationError(fieldForUnit(index, "pattern"), fmt.Sprintf("invalid pattern: %v", err), err)
			}
		}
		if strings.ContainsRune(unit.LineInFile.Line, '\n') {
			return provderrors.NewValidationError(fieldForUnit(index, "line"), "line must be a single line", nil)
		}
	case "file":
		if unit.File == nil {
			return missingConfig(index, unit)
		}
	case "mount":
		if unit.Mount == nil {
			return missingConfig(index, unit)
		}
	case "service":
		if unit.Service == nil {
			return missingConfig(index, unit)
		}
	case "repo":
		if unit.Repo == nil {
			return missingConfig(index, unit)
		}
	case "command":
		if unit.Command == nil {
			return missingConfig(index, unit)
		}
	}

	return nil
}

func missingConfig(index int, unit Unit) error {
	return provderrors.NewValidationError(fieldForUnit(index, unit.Type), fmt.Sprintf("%s configuration missing", unit.Type), nil)
}

func fieldForUnit(index int, field string) string {
	return fmt.Sprintf("units[%d].%s", index, field)
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return provderrors.NewValidationError("plan", err.Error(), err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	sort.Strings(messages)

	first := validationErrors[0]
	return provderrors.NewValidationError(first.Namespace(), strings.Join(messages, "; "), err)
}
