package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	provderrors "github.com/provd/provd/pkg/errors"
)

// ParsePlan loads a plan file from disk, validates it, and returns the
// resulting model.
func ParsePlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, provderrors.NewParseError(path, 0, err)
	}

	return parsePlanBytes(path, data)
}

func parsePlanBytes(source string, data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	// Unknown top-level keys are almost always typos; reject them instead
	// of silently dropping a misspelled settings block.
	dec.KnownFields(true)

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, provderrors.NewParseError(source, 0, fmt.Errorf("plan is empty"))
		}
		return nil, provderrors.NewParseError(source, decodeErrorLine(err), err)
	}

	if err := ValidatePlan(&plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

// decodeErrorLine digs the first line number out of a yaml decode error so
// the operator can jump straight to the offending plan entry.
func decodeErrorLine(err error) int {
	msg := err.Error()
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}

	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	digits := msg[i+len("line "):]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	line, convErr := strconv.Atoi(digits[:end])
	if convErr != nil {
		return 0
	}
	return line
}
