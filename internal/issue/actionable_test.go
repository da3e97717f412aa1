// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "resolve packages"},
			expected: "failed to resolve packages",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load module descriptor", Resource: "core/core.module.json"},
			expected: "failed to load module descriptor: core/core.module.json",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load module descriptor",
				Resource:  "core/core.module.json",
				Cause:     errors.New("ModuleType: field is required"),
			},
			expected: "failed to load module descriptor: core/core.module.json: ModuleType: field is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("specific error")
	wrapped := WrapWithOperation(cause, "fetch repository")

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if WrapWithOperation(nil, "noop") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "details and suggestions",
			err: &ActionableError{
				Operation:   "validate modules",
				Details:     []string{`"app" depends on "net", which does not exist`},
				Suggestions: []string{"Add the missing module or remove the dependency"},
			},
			contains: []string{
				"failed to validate modules",
				`  - "app" depends on "net", which does not exist`,
				"• Add the missing module",
			},
		},
		{
			name: "error chain in verbose mode",
			err: &ActionableError{
				Operation: "fetch repository",
				Cause: &ActionableError{
					Operation: "clone",
					Cause:     errors.New("reference not found"),
				},
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. failed to clone: reference not found",
				"2. reference not found",
			},
		},
		{
			name: "no error chain in non-verbose",
			err: &ActionableError{
				Operation: "fetch repository",
				Cause:     errors.New("reference not found"),
			},
			contains: []string{"failed to fetch repository: reference not found"},
			excludes: []string{"Error chain:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("generate build files").
		WithResource("/work/project").
		WithDetails("first", "second").
		WithSuggestion("Run 'yae clean'").
		Wrap(cause).
		Build()
	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if len(ae.Details) != 2 || !ae.HasSuggestions() || !errors.Is(ae, cause) {
		t.Errorf("unexpected ActionableError: %+v", ae)
	}
}
