// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the yae CLI.
//
// An ActionableError records what yae was doing when it failed (the
// operation), what it was working on (a descriptor, a clone path, the
// project directory), the individual diagnostics that led to the failure,
// and hints on how to fix it.
package issue
