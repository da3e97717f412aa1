// SPDX-License-Identifier: MPL-2.0

// Package project turns a project directory into a validated, ordered
// module graph: it discovers local packages, resolves their external
// package closure, collects module descriptors, fetches cloned modules and
// runs the registry checks.
package project
