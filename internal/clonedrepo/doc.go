// SPDX-License-Identifier: MPL-2.0

// Package clonedrepo materializes external Git repositories below the
// cloned repositories directory exactly once.
//
// A [Registry] maps each local path (relative to that directory) to the
// URL and revision that was cloned there. The mapping is persisted to a
// JSON file after every successful clone, so an interrupted run never
// forgets a completed one. Re-registering a path with a different URL or
// revision is rejected and leaves the registry untouched.
package clonedrepo
