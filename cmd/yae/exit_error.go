// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yae-build/yae/internal/issue"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their details and suggestions; verbose adds the cause chain.
// Errors without suggestions point at --verbose instead.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		out := ae.Format(verboseMode)
		if !verboseMode && !ae.HasSuggestions() {
			out += "\n\n" + SubtitleStyle.Render("Run with --verbose to see the full error chain.")
		}
		return out
	}
	return err.Error()
}

// fail prints err once in the CLI's own format and silences cobra's
// duplicate report.
func (a *App) fail(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
		exitErr = &ExitError{Code: 1, Err: err}
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return exitErr
}
