// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the yae command tree.
//
// Every command receives an *App holding the output writers, the project
// configuration provider and the cloner, so tests can run commands against
// a temporary project with a fake cloner.
package cmd
