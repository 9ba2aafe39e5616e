// Package exitcodes defines the process exit status contract
package exitcodes

import (
	"errors"

	"github.com/fenilsonani/rm-rfp/internal/security"
)

const (
	// Success covers completed runs, dry runs and runs the operator quit
	Success = 0
	// Usage is a bad flag, argument or configuration file
	Usage = 2
	// SafetyViolation means a root was refused before anything was deleted
	SafetyViolation = 3
	// Runtime means the run started but could not complete
	Runtime = 4
)

// UsageError marks errors caused by how the program was invoked
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// FromError maps an error returned by the command to an exit status
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return Usage
	}
	var safety *security.SafetyError
	if errors.As(err, &safety) {
		return SafetyViolation
	}
	return Runtime
}
