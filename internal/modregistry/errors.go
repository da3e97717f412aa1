// SPDX-License-Identifier: MPL-2.0

package modregistry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yae-build/yae/internal/dag"
)

var (
	// ErrDuplicateModule marks a module name registered twice.
	ErrDuplicateModule = errors.New("duplicate module")
	// ErrDanglingDependency marks a dependency on a module that does not exist.
	ErrDanglingDependency = errors.New("dangling dependency")
	// ErrNameMismatch marks a descriptor whose file name does not match its module.
	ErrNameMismatch = errors.New("module name mismatch")
	// ErrNoModules is returned when the registry is empty.
	ErrNoModules = errors.New("no modules found")
	// ErrDependencyCycle is the sentinel wrapped by CycleError.
	ErrDependencyCycle = dag.ErrCycle
	// ErrUnknownModule is returned when a sort target is not registered.
	ErrUnknownModule = errors.New("unknown module")
)

type (
	// Diagnostic is one structural problem.
	Diagnostic struct {
		// Kind is one of ErrDuplicateModule, ErrDanglingDependency or ErrNameMismatch.
		Kind error
		// Module is the module the problem was found on.
		Module string
		// Message is the human-readable description.
		Message string
	}

	// ValidationError aggregates every structural problem found by a check.
	ValidationError struct {
		Diagnostics []Diagnostic
	}

	// CycleError reports one dependency cycle. Its Walk starts and ends
	// with the same module, e.g. [A B C A].
	CycleError = dag.CycleError
)

func (d Diagnostic) String() string {
	return d.Message
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		lines = append(lines, d.Message)
	}
	if len(lines) == 1 {
		return lines[0]
	}
	return fmt.Sprintf("%d module problems:\n  %s", len(lines), strings.Join(lines, "\n  "))
}

// Unwrap returns the distinct diagnostic kinds, so errors.Is works for each.
func (e *ValidationError) Unwrap() []error {
	var kinds []error
	for _, d := range e.Diagnostics {
		found := false
		for _, k := range kinds {
			if k == d.Kind {
				found = true
				break
			}
		}
		if !found {
			kinds = append(kinds, d.Kind)
		}
	}
	return kinds
}
